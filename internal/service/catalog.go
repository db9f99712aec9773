package service

import (
	"context"
	"sort"
	"strings"

	"bookcourier/internal/backend"
	"bookcourier/internal/cache"
	"bookcourier/internal/models"
	"bookcourier/internal/resource"
	"bookcourier/internal/util"

	"go.uber.org/zap"
)

// Sort orders for the catalog.
const (
	SortNewest    = "newest"
	SortPriceAsc  = "price-asc"
	SortPriceDesc = "price-desc"
	SortName      = "name"
)

// CatalogQuery filters the public book list.
type CatalogQuery struct {
	Search   string `form:"search"`
	Category string `form:"category"`
	Sort     string `form:"sort"`
}

// CatalogService serves the public book lists.
type CatalogService struct {
	public *backend.Client
	cache  *cache.Cache
	logger *zap.Logger
}

// NewCatalogService creates a new catalog service
func NewCatalogService(public *backend.Client, c *cache.Cache) *CatalogService {
	return &CatalogService{
		public: public,
		cache:  c,
		logger: util.GetLogger(),
	}
}

func (s *CatalogService) allBooks(ctx context.Context) cache.TypedResult[[]models.Book] {
	return cache.Query(ctx, s.cache, resource.Books(), s.public.ListBooks, cache.Placeholder([]models.Book{}))
}

// Books returns the published books matching q.
func (s *CatalogService) Books(ctx context.Context, q CatalogQuery) View[[]models.Book] {
	ctx, span := util.StartSpan(ctx, "CatalogService.Books")
	defer span.End()

	v := viewOf(s.allBooks(ctx), "Error loading books.")
	v.Data = Filter(v.Data, q)
	return v
}

// Latest returns the newest published books for the home page.
func (s *CatalogService) Latest(ctx context.Context) View[[]models.Book] {
	res := cache.Query(ctx, s.cache, resource.LatestBooks(), s.public.LatestBooks, cache.Placeholder([]models.Book{}))
	v := viewOf(res, "Error loading latest books.")
	v.Data = Filter(v.Data, CatalogQuery{})
	return v
}

// Categories lists the distinct categories of published books, sorted.
func (s *CatalogService) Categories(ctx context.Context) View[[]string] {
	books := s.allBooks(ctx)
	seen := make(map[string]struct{})
	out := []string{}
	for _, b := range published(books.Data) {
		c := strings.TrimSpace(b.Category)
		if c == "" {
			continue
		}
		if _, ok := seen[strings.ToLower(c)]; ok {
			continue
		}
		seen[strings.ToLower(c)] = struct{}{}
		out = append(out, c)
	}
	sort.Strings(out)
	v := viewOf(books, "Error loading categories.")
	return View[[]string]{Data: out, Loading: v.Loading, Stale: v.Stale, Error: v.Error, Err: v.Err}
}

func published(books []models.Book) []models.Book {
	out := make([]models.Book, 0, len(books))
	for _, b := range books {
		if b.Status == "" || b.Status == models.BookStatusPublished {
			out = append(out, b)
		}
	}
	return out
}

// Filter applies the public catalog rules: published only, then search by
// name or author, category and sort. The input slice is not modified.
func Filter(books []models.Book, q CatalogQuery) []models.Book {
	out := published(books)

	if term := strings.ToLower(strings.TrimSpace(q.Search)); term != "" {
		kept := out[:0]
		for _, b := range out {
			if strings.Contains(strings.ToLower(b.Name), term) || strings.Contains(strings.ToLower(b.Author), term) {
				kept = append(kept, b)
			}
		}
		out = kept
	}

	if cat := strings.TrimSpace(q.Category); cat != "" {
		kept := out[:0]
		for _, b := range out {
			if strings.EqualFold(b.Category, cat) {
				kept = append(kept, b)
			}
		}
		out = kept
	}

	switch q.Sort {
	case SortPriceAsc:
		sort.SliceStable(out, func(i, j int) bool { return out[i].Price.LessThan(out[j].Price) })
	case SortPriceDesc:
		sort.SliceStable(out, func(i, j int) bool { return out[i].Price.GreaterThan(out[j].Price) })
	case SortName:
		sort.SliceStable(out, func(i, j int) bool { return strings.ToLower(out[i].Name) < strings.ToLower(out[j].Name) })
	case SortNewest:
		sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt.Time) })
	}
	return out
}
