package consts

// 帖子分类
const (
	CategoryGeneral       = "General"
	CategoryMentalHealth  = "Mental Health"
	CategorySelfCare      = "Self Care"
	CategoryRelationships = "Relationships"
	CategoryCareer        = "Career"
	CategoryMotherhood    = "Motherhood"
	CategoryFitness       = "Fitness"
	CategoryNutrition     = "Nutrition"
)

// CategoryAll 客户端筛选时表示不过滤
const CategoryAll = "All"

// Categories 固定的分类集合, 顺序即展示顺序
var Categories = []string{
	CategoryGeneral,
	CategoryMentalHealth,
	CategorySelfCare,
	CategoryRelationships,
	CategoryCareer,
	CategoryMotherhood,
	CategoryFitness,
	CategoryNutrition,
}

// IsCategory 判断分类是否合法
func IsCategory(category string) bool {
	for _, c := range Categories {
		if c == category {
			return true
		}
	}
	return false
}

// 列表排序方式
const (
	SortNewest  = "newest"
	SortPopular = "popular"
)
