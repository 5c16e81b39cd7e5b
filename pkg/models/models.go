package models

import "time"

// UnknownDate is stored when no publication date could be extracted
const UnknownDate = "Unknown"

// ListKind names one of the traversable lists on a profile
type ListKind string

const (
	ListTimeline  ListKind = "timeline"
	ListFollowers ListKind = "followers"
	ListFollowing ListKind = "following"
)

// SocialRole records which list a SocialEntry was collected from
type SocialRole string

const (
	RoleFollower  SocialRole = "follower"
	RoleFollowing SocialRole = "following"
)

// Role returns the social role for a social list kind
func (k ListKind) Role() SocialRole {
	if k == ListFollowing {
		return RoleFollowing
	}
	return RoleFollower
}

// ProfileRecord holds the profile header of the target identity
type ProfileRecord struct {
	IdentityName string `json:"identity_name"`
	Bio          string `json:"bio"`
}

// ContentItem is a post authored by the target identity
type ContentItem struct {
	ItemID       string `json:"item_id"`
	Text         string `json:"text"`
	PublishedAt  string `json:"published_at"`
	QuotedText   string `json:"quoted_text,omitempty"`
	QuotedAuthor string `json:"quoted_author,omitempty"`
}

// RepostItem is an item the target identity re-shared
type RepostItem struct {
	ItemID         string `json:"item_id"`
	OriginalText   string `json:"original_text"`
	OriginalAuthor string `json:"original_author"`
	AuthorBio      string `json:"author_bio"`
	RepostedAt     string `json:"reposted_at"`
}

// SocialEntry is one row of a followers or following list
type SocialEntry struct {
	Handle      string     `json:"handle"`
	DisplayName string     `json:"display_name"`
	Bio         string     `json:"bio"`
	Role        SocialRole `json:"role"`
}

// AggregateResult is the persisted document for one identity
type AggregateResult struct {
	Profile   ProfileRecord `json:"profile"`
	Posts     []ContentItem `json:"posts"`
	Reposts   []RepostItem  `json:"reposts"`
	Followers []SocialEntry `json:"followers"`
	Following []SocialEntry `json:"following"`
}

// NewAggregateResult returns a result whose lists serialize as [] rather than null
func NewAggregateResult() *AggregateResult {
	return &AggregateResult{
		Posts:     []ContentItem{},
		Reposts:   []RepostItem{},
		Followers: []SocialEntry{},
		Following: []SocialEntry{},
	}
}

// Normalize replaces nil lists with empty ones
func (r *AggregateResult) Normalize() {
	if r.Posts == nil {
		r.Posts = []ContentItem{}
	}
	if r.Reposts == nil {
		r.Reposts = []RepostItem{}
	}
	if r.Followers == nil {
		r.Followers = []SocialEntry{}
	}
	if r.Following == nil {
		r.Following = []SocialEntry{}
	}
}

// HasContent reports whether any profile field or list is populated
func (r *AggregateResult) HasContent() bool {
	return r.Profile.IdentityName != "" ||
		r.Profile.Bio != "" ||
		len(r.Posts) > 0 ||
		len(r.Reposts) > 0 ||
		len(r.Followers) > 0 ||
		len(r.Following) > 0
}

// Cookie is one entry of a persisted browser session artifact, in the
// browser-export JSON shape
type Cookie struct {
	Name     string  `json:"name"`
	Value    string  `json:"value"`
	Domain   string  `json:"domain"`
	Path     string  `json:"path"`
	Expires  float64 `json:"expires,omitempty"`
	HTTPOnly bool    `json:"httpOnly"`
	Secure   bool    `json:"secure"`
	SameSite string  `json:"sameSite,omitempty"`
}

// ExpiresAt returns the expiry as a time, or the zero time for session cookies
func (c Cookie) ExpiresAt() time.Time {
	if c.Expires <= 0 {
		return time.Time{}
	}
	sec := int64(c.Expires)
	nsec := int64((c.Expires - float64(sec)) * 1e9)
	return time.Unix(sec, nsec)
}
