package community

import (
	"Haven/internal/api/dto"
	"Haven/internal/pkg/consts"
	"Haven/internal/pkg/util"
	"sort"
	"strings"
)

// Visible 按分类过滤、按标题或正文搜索、再排序, 不修改缓存
func (s State) Visible() []*dto.PostDTO {
	query := strings.TrimSpace(s.Query)
	out := make([]*dto.PostDTO, 0, len(s.Posts))
	for _, p := range s.Posts {
		if !matchCategory(p, s.Category) {
			continue
		}
		if query != "" && !util.ContainsFold(p.Title, query) && !util.ContainsFold(p.Content, query) {
			continue
		}
		out = append(out, p)
	}
	SortPosts(out, s.Sort)
	return out
}

func matchCategory(p *dto.PostDTO, category string) bool {
	return category == "" || category == consts.CategoryAll || p.Category == category
}

// SortPosts 与服务端排序规则一致
func SortPosts(posts []*dto.PostDTO, sortBy string) {
	newer := func(a, b *dto.PostDTO) bool {
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.After(b.CreatedAt)
		}
		return a.ID > b.ID
	}
	if sortBy == consts.SortPopular {
		sort.SliceStable(posts, func(i, j int) bool {
			if posts[i].Likes != posts[j].Likes {
				return posts[i].Likes > posts[j].Likes
			}
			return newer(posts[i], posts[j])
		})
		return
	}
	sort.SliceStable(posts, func(i, j int) bool {
		return newer(posts[i], posts[j])
	})
}
