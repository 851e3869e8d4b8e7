package media

import "time"

// Comment is one fetched comment, in fetch order.
type Comment struct {
	Text      string    `json:"text"`
	Author    string    `json:"owner"`
	LikeCount int       `json:"likes"`
	Timestamp time.Time `json:"timestamp,omitzero"`
}

// PostMetadata describes the post the comments belong to.
type PostMetadata struct {
	Shortcode string `json:"shortcode"`
	Caption   string `json:"caption"`
	Owner     string `json:"owner"`
	Title     string `json:"title,omitempty"`
	MediaType string `json:"media_type"`
	IsVideo   bool   `json:"is_video"`
	URL       string `json:"url,omitempty"`
	LikeCount int    `json:"likes"`
}

// CommentSet is the immutable result of a comment fetch.
type CommentSet struct {
	Comments  []Comment    `json:"comments"`
	Post      PostMetadata `json:"post_info"`
	Count     int          `json:"comment_count"`
	LoginUsed bool         `json:"login_used"`
}

// NewCommentSet freezes comments and keeps Count in step with the slice.
func NewCommentSet(comments []Comment, post PostMetadata, loginUsed bool) *CommentSet {
	frozen := append([]Comment(nil), comments...)
	if frozen == nil {
		frozen = []Comment{}
	}
	return &CommentSet{Comments: frozen, Post: post, Count: len(frozen), LoginUsed: loginUsed}
}

// Empty reports whether the set holds no comments.
func (c *CommentSet) Empty() bool {
	return c == nil || len(c.Comments) == 0
}
