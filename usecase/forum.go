package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"urbansetu/model"
	"urbansetu/realtime"
	"urbansetu/utils"
)

type ForumStore interface {
	Create(ctx context.Context, p *model.ForumPost) error
	FindByID(ctx context.Context, id string) (*model.ForumPost, error)
	Save(ctx context.Context, p *model.ForumPost) error
	Delete(ctx context.Context, id string) error
	IncrementViews(ctx context.Context, id string) error
	List(ctx context.Context, f model.ForumFilter) ([]model.ForumPost, int64, error)
	ListReported(ctx context.Context, page, limit int) ([]model.ForumPost, int64, error)
}

type PostInput struct {
	Title    string
	Content  string
	Category string
	Tags     []string
}

// ContentRef points at a post, one of its comments, or a reply to a comment.
type ContentRef struct {
	PostID    string `json:"post_id"`
	CommentID string `json:"comment_id,omitempty"`
	ReplyID   string `json:"reply_id,omitempty"`
}

const maxForumTags = 10

var errForumNotFound = fmt.Errorf("forum content: %w", model.ErrNotFound)

type ForumService struct {
	posts  ForumStore
	users  UserLookup
	notify Notifier
	now    func() time.Time
}

func NewForumService(posts ForumStore, users UserLookup, notify Notifier) *ForumService {
	if notify == nil {
		notify = NopNotifier
	}
	return &ForumService{posts: posts, users: users, notify: notify, now: time.Now}
}

func (s *ForumService) emit(event string, data interface{}) {
	s.notify.EmitToRoom(realtime.ForumRoom, event, data)
}

func (s *ForumService) authorName(ctx context.Context, userID string) string {
	if s.users == nil {
		return ""
	}
	u, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return ""
	}
	return u.Username
}

func canModerate(actor Actor) bool { return actor.Can(model.PermModerateForum) }

// mutate loads the post, applies fn and saves under the version check,
// reloading and retrying once on a concurrent write.
func (s *ForumService) mutate(ctx context.Context, postID string, fn func(*model.ForumPost) error) (*model.ForumPost, error) {
	for attempt := 0; ; attempt++ {
		post, err := s.posts.FindByID(ctx, postID)
		if err != nil {
			return nil, err
		}
		if err := fn(post); err != nil {
			return nil, err
		}
		post.UpdatedAt = s.now()

		err = s.posts.Save(ctx, post)
		if errors.Is(err, model.ErrVersionConflict) && attempt == 0 {
			utils.Debug().Str("post_id", postID).Msg("forum post version conflict, retrying")
			continue
		}
		if err != nil {
			return nil, err
		}
		return post, nil
	}
}

func cleanTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	seen := make(map[string]bool, len(tags))
	for _, t := range tags {
		t = strings.ToLower(strings.TrimSpace(t))
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
		if len(out) == maxForumTags {
			break
		}
	}
	return out
}

func validatePost(in PostInput) error {
	if strings.TrimSpace(in.Title) == "" || strings.TrimSpace(in.Content) == "" {
		return fmt.Errorf("title and content required: %w", model.ErrInvalidInput)
	}
	return nil
}

func (s *ForumService) CreatePost(ctx context.Context, actor Actor, in PostInput) (*model.ForumPost, error) {
	if err := validatePost(in); err != nil {
		return nil, err
	}
	now := s.now()
	category := strings.TrimSpace(in.Category)
	if category == "" {
		category = "general"
	}
	post := &model.ForumPost{
		ID:        utils.NewID(),
		AuthorID:  actor.UserID,
		Author:    s.authorName(ctx, actor.UserID),
		Title:     strings.TrimSpace(in.Title),
		Content:   in.Content,
		Category:  category,
		Tags:      cleanTags(in.Tags),
		Reactions: model.Reactions{Likes: []string{}, Dislikes: []string{}},
		Comments:  []model.ForumComment{},
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.posts.Create(ctx, post); err != nil {
		return nil, err
	}
	s.emit(EventForumPostCreated, post)
	return post, nil
}

func (s *ForumService) ListPosts(ctx context.Context, f model.ForumFilter) (model.Page[model.ForumPost], error) {
	f.Page, f.Limit = model.NormalizePage(f.Page, f.Limit)
	posts, total, err := s.posts.List(ctx, f)
	if err != nil {
		return model.Page[model.ForumPost]{}, err
	}
	return model.NewPage(posts, total, f.Page, f.Limit), nil
}

// GetPost counts a view. A failed view increment is logged only.
func (s *ForumService) GetPost(ctx context.Context, id string) (*model.ForumPost, error) {
	post, err := s.posts.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.posts.IncrementViews(ctx, id); err != nil {
		utils.Warn().Err(err).Str("post_id", id).Msg("failed to increment post views")
	} else {
		post.Views++
	}
	return post, nil
}

func (s *ForumService) UpdatePost(ctx context.Context, actor Actor, id string, in PostInput) (*model.ForumPost, error) {
	if err := validatePost(in); err != nil {
		return nil, err
	}
	post, err := s.mutate(ctx, id, func(p *model.ForumPost) error {
		if p.AuthorID != actor.UserID {
			return model.ErrForbidden
		}
		p.Title = strings.TrimSpace(in.Title)
		p.Content = in.Content
		if c := strings.TrimSpace(in.Category); c != "" {
			p.Category = c
		}
		if in.Tags != nil {
			p.Tags = cleanTags(in.Tags)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.emit(EventForumPostUpdated, post)
	return post, nil
}

func (s *ForumService) DeletePost(ctx context.Context, actor Actor, id string) error {
	post, err := s.posts.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if post.AuthorID != actor.UserID && !canModerate(actor) {
		return model.ErrForbidden
	}
	if err := s.posts.Delete(ctx, id); err != nil {
		return err
	}
	s.emit(EventForumPostDeleted, ContentRef{PostID: id})
	return nil
}

func (s *ForumService) AddComment(ctx context.Context, actor Actor, postID, content string) (*model.ForumComment, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, fmt.Errorf("comment content required: %w", model.ErrInvalidInput)
	}
	now := s.now()
	comment := model.ForumComment{
		ID:        utils.NewID(),
		AuthorID:  actor.UserID,
		Author:    s.authorName(ctx, actor.UserID),
		Content:   content,
		Reactions: model.Reactions{Likes: []string{}, Dislikes: []string{}},
		Replies:   []model.ForumReply{},
		CreatedAt: now,
		UpdatedAt: now,
	}
	_, err := s.mutate(ctx, postID, func(p *model.ForumPost) error {
		if p.IsLocked {
			return model.ErrLocked
		}
		p.Comments = append(p.Comments, comment)
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.emit(EventForumCommentAdded, map[string]any{"post_id": postID, "comment": comment})
	return &comment, nil
}

func (s *ForumService) EditComment(ctx context.Context, actor Actor, postID, commentID, content string) (*model.ForumComment, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, fmt.Errorf("comment content required: %w", model.ErrInvalidInput)
	}
	var edited model.ForumComment
	post, err := s.mutate(ctx, postID, func(p *model.ForumPost) error {
		c := p.Comment(commentID)
		if c == nil {
			return errForumNotFound
		}
		if c.AuthorID != actor.UserID {
			return model.ErrForbidden
		}
		c.Content = content
		c.Edited = true
		c.UpdatedAt = s.now()
		edited = *c
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.emit(EventForumPostUpdated, post)
	return &edited, nil
}

func (s *ForumService) DeleteComment(ctx context.Context, actor Actor, postID, commentID string) error {
	_, err := s.mutate(ctx, postID, func(p *model.ForumPost) error {
		for i, c := range p.Comments {
			if c.ID != commentID {
				continue
			}
			if c.AuthorID != actor.UserID && !canModerate(actor) {
				return model.ErrForbidden
			}
			p.Comments = append(p.Comments[:i], p.Comments[i+1:]...)
			return nil
		}
		return errForumNotFound
	})
	if err != nil {
		return err
	}
	s.emit(EventForumCommentDeleted, ContentRef{PostID: postID, CommentID: commentID})
	return nil
}

func (s *ForumService) AddReply(ctx context.Context, actor Actor, postID, commentID, content string) (*model.ForumReply, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, fmt.Errorf("reply content required: %w", model.ErrInvalidInput)
	}
	now := s.now()
	reply := model.ForumReply{
		ID:        utils.NewID(),
		AuthorID:  actor.UserID,
		Author:    s.authorName(ctx, actor.UserID),
		Content:   content,
		Reactions: model.Reactions{Likes: []string{}, Dislikes: []string{}},
		CreatedAt: now,
		UpdatedAt: now,
	}
	_, err := s.mutate(ctx, postID, func(p *model.ForumPost) error {
		if p.IsLocked {
			return model.ErrLocked
		}
		c := p.Comment(commentID)
		if c == nil {
			return errForumNotFound
		}
		c.Replies = append(c.Replies, reply)
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.emit(EventForumCommentAdded, map[string]any{"post_id": postID, "comment_id": commentID, "reply": reply})
	return &reply, nil
}

func (s *ForumService) DeleteReply(ctx context.Context, actor Actor, postID, commentID, replyID string) error {
	_, err := s.mutate(ctx, postID, func(p *model.ForumPost) error {
		c := p.Comment(commentID)
		if c == nil {
			return errForumNotFound
		}
		for i, r := range c.Replies {
			if r.ID != replyID {
				continue
			}
			if r.AuthorID != actor.UserID && !canModerate(actor) {
				return model.ErrForbidden
			}
			c.Replies = append(c.Replies[:i], c.Replies[i+1:]...)
			return nil
		}
		return errForumNotFound
	})
	if err != nil {
		return err
	}
	s.emit(EventForumCommentDeleted, ContentRef{PostID: postID, CommentID: commentID, ReplyID: replyID})
	return nil
}

// locate resolves ref inside p to its reactions and reports.
func locate(p *model.ForumPost, ref ContentRef) (*model.Reactions, *[]model.ContentReport, error) {
	if ref.CommentID == "" {
		if ref.ReplyID != "" {
			return nil, nil, fmt.Errorf("reply without comment: %w", model.ErrInvalidInput)
		}
		return &p.Reactions, &p.Reports, nil
	}
	c := p.Comment(ref.CommentID)
	if c == nil {
		return nil, nil, errForumNotFound
	}
	if ref.ReplyID == "" {
		return &c.Reactions, &c.Reports, nil
	}
	r := c.Reply(ref.ReplyID)
	if r == nil {
		return nil, nil, errForumNotFound
	}
	return &r.Reactions, &r.Reports, nil
}

type ReactionResult struct {
	ContentRef
	Likes    int  `json:"likes"`
	Dislikes int  `json:"dislikes"`
	Active   bool `json:"active"`
}

// React toggles a like or dislike on a post, comment or reply.
func (s *ForumService) React(ctx context.Context, actor Actor, ref ContentRef, kind model.ReactionKind) (*ReactionResult, error) {
	if !kind.Valid() {
		return nil, fmt.Errorf("unknown reaction %q: %w", kind, model.ErrInvalidInput)
	}
	var res ReactionResult
	_, err := s.mutate(ctx, ref.PostID, func(p *model.ForumPost) error {
		reactions, _, err := locate(p, ref)
		if err != nil {
			return err
		}
		active := model.ToggleReaction(reactions, actor.UserID, kind)
		res = ReactionResult{
			ContentRef: ref,
			Likes:      len(reactions.Likes),
			Dislikes:   len(reactions.Dislikes),
			Active:     active,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.emit(EventForumReactionUpdated, res)
	return &res, nil
}

// Report flags content for moderators. A user reports a target once.
func (s *ForumService) Report(ctx context.Context, actor Actor, ref ContentRef, reason string) error {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return fmt.Errorf("report reason required: %w", model.ErrInvalidInput)
	}
	_, err := s.mutate(ctx, ref.PostID, func(p *model.ForumPost) error {
		_, reports, err := locate(p, ref)
		if err != nil {
			return err
		}
		for _, r := range *reports {
			if r.UserID == actor.UserID {
				return model.ErrAlreadyReported
			}
		}
		*reports = append(*reports, model.ContentReport{
			UserID:    actor.UserID,
			Reason:    reason,
			CreatedAt: s.now(),
		})
		return nil
	})
	if err != nil {
		return err
	}
	s.notify.EmitToAdmins(EventReportSubmitted, map[string]any{"kind": "forum", "ref": ref})
	return nil
}

// DismissReports clears the reports on one target.
func (s *ForumService) DismissReports(ctx context.Context, actor Actor, ref ContentRef) error {
	if !canModerate(actor) {
		return model.ErrForbidden
	}
	_, err := s.mutate(ctx, ref.PostID, func(p *model.ForumPost) error {
		_, reports, err := locate(p, ref)
		if err != nil {
			return err
		}
		*reports = nil
		return nil
	})
	return err
}

func (s *ForumService) ListReported(ctx context.Context, actor Actor, page, limit int) (model.Page[model.ForumPost], error) {
	if !canModerate(actor) {
		return model.Page[model.ForumPost]{}, model.ErrForbidden
	}
	page, limit = model.NormalizePage(page, limit)
	posts, total, err := s.posts.ListReported(ctx, page, limit)
	if err != nil {
		return model.Page[model.ForumPost]{}, err
	}
	return model.NewPage(posts, total, page, limit), nil
}

func (s *ForumService) SetLocked(ctx context.Context, actor Actor, id string, locked bool) (*model.ForumPost, error) {
	return s.moderate(ctx, actor, id, func(p *model.ForumPost) { p.IsLocked = locked })
}

func (s *ForumService) SetPinned(ctx context.Context, actor Actor, id string, pinned bool) (*model.ForumPost, error) {
	return s.moderate(ctx, actor, id, func(p *model.ForumPost) { p.IsPinned = pinned })
}

func (s *ForumService) moderate(ctx context.Context, actor Actor, id string, fn func(*model.ForumPost)) (*model.ForumPost, error) {
	if !canModerate(actor) {
		return nil, model.ErrForbidden
	}
	post, err := s.mutate(ctx, id, func(p *model.ForumPost) error {
		fn(p)
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.emit(EventForumPostUpdated, post)
	return post, nil
}
