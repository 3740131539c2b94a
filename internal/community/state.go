package community

import (
	"Haven/internal/api/dto"
	"Haven/internal/model"
	"Haven/internal/pkg/consts"
)

// TempIDBase 乐观创建的帖子/评论使用的临时 id 起点, 不会与服务端自增 id 冲突
const TempIDBase uint64 = 1 << 63

func IsTempID(id uint64) bool {
	return id >= TempIDBase
}

// Session 当前登录身份
type Session struct {
	UserID string // email
	Name   string
	Role   model.Role
}

func (s Session) LoggedIn() bool {
	return s.UserID != ""
}

type Toast struct {
	ID      uint64
	Message string
}

// State 客户端社区视图的全部状态; 作为值传递, 只能通过 Reducer 产生新值
type State struct {
	Posts    []*dto.PostDTO
	Session  Session
	Sort     string
	Category string
	Query    string
	Loading  bool
	Toast    *Toast

	// Gen 已发出的最大变更代数; Latest 记录每个帖子最近一次变更的代数
	Gen    uint64
	Latest map[uint64]uint64
}

// Reducer 纯函数, 不修改入参
type Reducer func(State) State

func NewState() State {
	return State{
		Posts:    []*dto.PostDTO{},
		Sort:     consts.SortNewest,
		Category: consts.CategoryAll,
		Latest:   map[uint64]uint64{},
	}
}

// Find 返回缓存中的帖子及下标, 不存在时下标为 -1
func (s State) Find(postID uint64) (*dto.PostDTO, int) {
	for i, p := range s.Posts {
		if p.ID == postID {
			return p, i
		}
	}
	return nil, -1
}

func clonePost(p *dto.PostDTO) *dto.PostDTO {
	c := *p
	c.LikedBy = append([]string{}, p.LikedBy...)
	c.Comments = append([]*dto.CommentDTO{}, p.Comments...)
	return &c
}

func mapPosts(posts []*dto.PostDTO, postID uint64, fn func(*dto.PostDTO) *dto.PostDTO) []*dto.PostDTO {
	out := make([]*dto.PostDTO, 0, len(posts))
	for _, p := range posts {
		if p.ID == postID {
			p = fn(p)
		}
		out = append(out, p)
	}
	return out
}

func copyLatest(latest map[uint64]uint64) map[uint64]uint64 {
	out := make(map[uint64]uint64, len(latest))
	for k, v := range latest {
		out[k] = v
	}
	return out
}

func SetPosts(posts []*dto.PostDTO) Reducer {
	return func(s State) State {
		s.Posts = append([]*dto.PostDTO{}, posts...)
		s.Loading = false
		return s
	}
}

func SetLoading(loading bool) Reducer {
	return func(s State) State {
		s.Loading = loading
		return s
	}
}

// ReplacePost 用给定帖子替换同 id 的缓存项, 缓存中没有时不插入
func ReplacePost(post *dto.PostDTO) Reducer {
	return ReplacePostID(post.ID, post)
}

// ReplacePostID 用 post 替换缓存中 id 为 oldID 的项.
// 缓存里已有 post.ID (列表先于创建结果带回了它) 时替换那一项并移除 oldID
func ReplacePostID(oldID uint64, post *dto.PostDTO) Reducer {
	return func(s State) State {
		if oldID != post.ID {
			if existing, _ := s.Find(post.ID); existing != nil {
				s.Posts = mapPosts(s.Posts, post.ID, func(*dto.PostDTO) *dto.PostDTO { return post })
				return RemovePost(oldID)(s)
			}
		}
		s.Posts = mapPosts(s.Posts, oldID, func(*dto.PostDTO) *dto.PostDTO { return post })
		return s
	}
}

// MergePosts 用服务端列表刷新缓存, 保留仍在进行中的变更:
// 未确认的临时帖子排在最前, 进行中的帖子沿用本地版本, 乐观删除的帖子不恢复
func MergePosts(posts []*dto.PostDTO) Reducer {
	return func(s State) State {
		out := make([]*dto.PostDTO, 0, len(posts)+len(s.Latest))
		for _, p := range s.Posts {
			if _, pending := s.Latest[p.ID]; pending && IsTempID(p.ID) {
				out = append(out, p)
			}
		}
		for _, p := range posts {
			if _, pending := s.Latest[p.ID]; pending {
				local, _ := s.Find(p.ID)
				if local == nil {
					continue
				}
				p = local
			}
			out = append(out, p)
		}
		s.Posts = out
		s.Loading = false
		return s
	}
}

func PrependPost(post *dto.PostDTO) Reducer {
	return func(s State) State {
		posts := make([]*dto.PostDTO, 0, len(s.Posts)+1)
		posts = append(posts, post)
		s.Posts = append(posts, s.Posts...)
		return s
	}
}

func RemovePost(postID uint64) Reducer {
	return func(s State) State {
		posts := make([]*dto.PostDTO, 0, len(s.Posts))
		for _, p := range s.Posts {
			if p.ID != postID {
				posts = append(posts, p)
			}
		}
		s.Posts = posts
		return s
	}
}

// InsertPostAt 将帖子放回原位置, 已存在同 id 时不变
func InsertPostAt(post *dto.PostDTO, index int) Reducer {
	return func(s State) State {
		if p, _ := s.Find(post.ID); p != nil {
			return s
		}
		if index < 0 {
			index = 0
		}
		if index > len(s.Posts) {
			index = len(s.Posts)
		}
		posts := make([]*dto.PostDTO, 0, len(s.Posts)+1)
		posts = append(posts, s.Posts[:index]...)
		posts = append(posts, post)
		s.Posts = append(posts, s.Posts[index:]...)
		return s
	}
}

// ToggleLikeLocal 本地切换点赞, likes 由 likedBy 推导
func ToggleLikeLocal(postID uint64, userID string) Reducer {
	return func(s State) State {
		s.Posts = mapPosts(s.Posts, postID, func(p *dto.PostDTO) *dto.PostDTO {
			c := clonePost(p)
			likedBy := make([]string, 0, len(c.LikedBy)+1)
			found := false
			for _, id := range c.LikedBy {
				if id == userID {
					found = true
					continue
				}
				likedBy = append(likedBy, id)
			}
			if !found {
				likedBy = append(likedBy, userID)
			}
			c.LikedBy = likedBy
			c.Likes = len(likedBy)
			return c
		})
		return s
	}
}

func AppendCommentLocal(postID uint64, comment *dto.CommentDTO) Reducer {
	return func(s State) State {
		s.Posts = mapPosts(s.Posts, postID, func(p *dto.PostDTO) *dto.PostDTO {
			c := clonePost(p)
			c.Comments = append(c.Comments, comment)
			return c
		})
		return s
	}
}

func RemoveCommentLocal(postID, commentID uint64) Reducer {
	return func(s State) State {
		s.Posts = mapPosts(s.Posts, postID, func(p *dto.PostDTO) *dto.PostDTO {
			c := clonePost(p)
			comments := make([]*dto.CommentDTO, 0, len(c.Comments))
			for _, cm := range c.Comments {
				if cm.ID != commentID {
					comments = append(comments, cm)
				}
			}
			c.Comments = comments
			return c
		})
		return s
	}
}

func SetSession(session Session) Reducer {
	return func(s State) State {
		s.Session = session
		return s
	}
}

func SetSort(sort string) Reducer {
	return func(s State) State {
		s.Sort = sort
		return s
	}
}

func SetCategory(category string) Reducer {
	return func(s State) State {
		s.Category = category
		return s
	}
}

func SetQuery(query string) Reducer {
	return func(s State) State {
		s.Query = query
		return s
	}
}

func ShowToast(toast Toast) Reducer {
	return func(s State) State {
		s.Toast = &toast
		return s
	}
}

// DismissToast 只关闭 id 匹配的提示, 新提示不受旧定时器影响
func DismissToast(id uint64) Reducer {
	return func(s State) State {
		if s.Toast != nil && s.Toast.ID == id {
			s.Toast = nil
		}
		return s
	}
}

// Track 记录 key 的最新变更代数
func Track(key, gen uint64) Reducer {
	return func(s State) State {
		s.Latest = copyLatest(s.Latest)
		s.Latest[key] = gen
		if gen > s.Gen {
			s.Gen = gen
		}
		return s
	}
}

// Untrack 变更完成后清除记录, 仅当仍是最新代数时生效
func Untrack(key, gen uint64) Reducer {
	return func(s State) State {
		if s.Latest[key] != gen {
			return s
		}
		s.Latest = copyLatest(s.Latest)
		delete(s.Latest, key)
		return s
	}
}

// IsCurrent gen 是否仍是 key 的最新变更
func (s State) IsCurrent(key, gen uint64) bool {
	return s.Latest[key] == gen
}
