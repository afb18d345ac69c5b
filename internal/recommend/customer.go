package recommend

import (
	"cmp"
	"fmt"
	"slices"
	"strings"

	"pasale-analytics/internal/dataset"
	"pasale-analytics/internal/models"
)

const (
	TypeCategoryPreference = "category_preference"
	TypeShopPopularity     = "shop_popularity"
	TypeCategoryExpansion  = "category_expansion"
	TypeCollaborative      = "collaborative_filtering"
	TypeTrending           = "trending"
	TypePopularityBased    = "popularity_based"
	TypeCategoryDiscovery  = "category_discovery"

	anyShop         = "Any"
	shopsConsidered = 5
	popularPerShop  = 10
	expansionDepth  = 3
	expansionScan   = 5
	similarScan     = 3
	trendingPool    = 20
)

type behavior struct {
	id           string
	spend        float64
	transactions int
	purchased    map[string]bool
	products     []string
	shops        []string
	visited      map[string]bool
	categories   []string
	catCounts    map[string]int
}

func (b *behavior) topCategory() string {
	if len(b.categories) == 0 {
		return ""
	}
	return b.categories[0]
}

type productStat struct {
	productID string
	name      string
	category  string
	quantity  int
}

// index holds the lookups shared by every customer strategy.
type index struct {
	catalog       []models.Product
	byCategory    map[string][]models.Product
	productInfo   map[string]models.Product
	sellers       map[string][]string
	shopPopular   map[string][]productStat
	trending      []productStat
	customers     []*behavior
	customerIndex map[string]*behavior
}

func buildIndex(ds *dataset.Dataset) *index {
	idx := &index{
		catalog:       ds.Products(),
		byCategory:    make(map[string][]models.Product),
		productInfo:   make(map[string]models.Product),
		sellers:       make(map[string][]string),
		shopPopular:   make(map[string][]productStat),
		customerIndex: make(map[string]*behavior),
	}
	for _, p := range idx.catalog {
		if _, ok := idx.productInfo[p.ProductID]; ok {
			continue
		}
		idx.productInfo[p.ProductID] = p
		idx.byCategory[p.Category] = append(idx.byCategory[p.Category], p)
	}

	shopQty := make(map[[2]string]*productStat)
	for _, rec := range ds.Records() {
		if !slices.Contains(idx.sellers[rec.ProductID], rec.ShopID) {
			idx.sellers[rec.ProductID] = append(idx.sellers[rec.ProductID], rec.ShopID)
		}

		key := [2]string{rec.ShopID, rec.ProductID}
		ps, ok := shopQty[key]
		if !ok {
			ps = &productStat{productID: rec.ProductID, name: rec.ProductName, category: rec.Category}
			shopQty[key] = ps
		}
		ps.quantity += rec.Quantity

		b, ok := idx.customerIndex[rec.CustomerID]
		if !ok {
			b = &behavior{id: rec.CustomerID, purchased: make(map[string]bool), visited: make(map[string]bool), catCounts: make(map[string]int)}
			idx.customerIndex[rec.CustomerID] = b
			idx.customers = append(idx.customers, b)
		}
		b.spend += rec.TotalAmount
		b.transactions++
		if !b.purchased[rec.ProductID] {
			b.purchased[rec.ProductID] = true
			b.products = append(b.products, rec.ProductID)
		}
		if !b.visited[rec.ShopID] {
			b.visited[rec.ShopID] = true
			b.shops = append(b.shops, rec.ShopID)
		}
		if rec.Category != "" {
			if b.catCounts[rec.Category] == 0 {
				b.categories = append(b.categories, rec.Category)
			}
			b.catCounts[rec.Category]++
		}
	}

	for key, ps := range shopQty {
		idx.shopPopular[key[0]] = append(idx.shopPopular[key[0]], *ps)
	}
	for shop := range idx.shopPopular {
		slices.SortFunc(idx.shopPopular[shop], byQuantityDesc)
	}

	for _, b := range idx.customers {
		slices.SortStableFunc(b.categories, func(x, y string) int {
			return cmp.Compare(b.catCounts[y], b.catCounts[x])
		})
	}
	slices.SortStableFunc(idx.customers, func(a, b *behavior) int {
		if c := cmp.Compare(b.spend, a.spend); c != 0 {
			return c
		}
		return strings.Compare(a.id, b.id)
	})

	totals := make(map[string]*productStat)
	for _, row := range ds.Monthly() {
		ps, ok := totals[row.ProductID]
		if !ok {
			ps = &productStat{productID: row.ProductID, name: row.ProductName, category: row.Category}
			totals[row.ProductID] = ps
		}
		ps.quantity += row.MonthlyQuantity
	}
	for _, ps := range totals {
		idx.trending = append(idx.trending, *ps)
	}
	slices.SortFunc(idx.trending, byQuantityDesc)
	if len(idx.trending) > trendingPool {
		idx.trending = idx.trending[:trendingPool]
	}
	return idx
}

func byQuantityDesc(a, b productStat) int {
	if c := cmp.Compare(b.quantity, a.quantity); c != 0 {
		return c
	}
	return strings.Compare(a.productID, b.productID)
}

// preferredShop picks the first shop selling the product that the customer
// already visits, falling back to any seller.
func (idx *index) preferredShop(productID string, visited map[string]bool) (string, bool) {
	sellers := idx.sellers[productID]
	for _, s := range sellers {
		if visited[s] {
			return s, true
		}
	}
	if len(sellers) > 0 {
		return sellers[0], true
	}
	return "", false
}

func (idx *index) anySeller(productID string) string {
	if sellers := idx.sellers[productID]; len(sellers) > 0 {
		return sellers[0]
	}
	return anyShop
}

// Customers runs the personalized strategies for the top spenders and falls
// back to popularity and discovery suggestions when they yield nothing.
// It returns a non-empty list for any dataset with transactions.
func Customers(ds *dataset.Dataset, opts Options) []models.CustomerRecommendation {
	if ds == nil || ds.RecordCount() == 0 {
		return nil
	}
	idx := buildIndex(ds)

	var recs []models.CustomerRecommendation
	top := idx.customers
	if len(top) > opts.MaxCustomers {
		top = top[:opts.MaxCustomers]
	}
	for _, b := range top {
		recs = append(recs, idx.forCustomer(b, opts)...)
	}
	if len(recs) == 0 {
		return idx.basic(opts)
	}
	return recs
}

type collector struct {
	customer *behavior
	seen     map[string]bool
	out      []models.CustomerRecommendation
}

func (c *collector) add(p productStat, shop, reason string, conf models.Confidence, kind string) {
	c.seen[p.productID] = true
	c.out = append(c.out, models.CustomerRecommendation{
		CustomerID:         c.customer.id,
		ProductID:          p.productID,
		ProductName:        p.name,
		Category:           p.category,
		RecommendedShop:    shop,
		Reason:             reason,
		Confidence:         conf,
		RecommendationType: kind,
	})
}

func (c *collector) skip(productID string) bool {
	return c.customer.purchased[productID] || c.seen[productID]
}

func statOf(p models.Product) productStat {
	return productStat{productID: p.ProductID, name: p.ProductName, category: p.Category}
}

func (idx *index) forCustomer(b *behavior, opts Options) []models.CustomerRecommendation {
	c := &collector{customer: b, seen: make(map[string]bool)}
	top := b.topCategory()

	n := 0
	var favorites []models.Product
	if top != "" {
		favorites = idx.byCategory[top]
	}
	for _, p := range favorites {
		if n >= opts.CategoryPreference {
			break
		}
		if c.skip(p.ProductID) {
			continue
		}
		if shop, ok := idx.preferredShop(p.ProductID, b.visited); ok {
			c.add(statOf(p), shop, fmt.Sprintf("You frequently buy %s products. Try this new item!", top), models.ConfidenceHigh, TypeCategoryPreference)
			n++
		}
	}

	n = 0
	for _, shop := range b.shops[:min(len(b.shops), shopsConsidered)] {
		popular := idx.shopPopular[shop]
		for _, ps := range popular[:min(len(popular), popularPerShop)] {
			if n >= opts.ShopPopularity {
				break
			}
			if c.skip(ps.productID) {
				continue
			}
			c.add(ps, shop, "Popular item at a shop you visit frequently", models.ConfidenceMedium, TypeShopPopularity)
			n++
		}
	}

	if b.transactions > 1 && len(b.categories) > 1 {
		n = 0
		secondary := b.categories[1:min(len(b.categories), 1+expansionDepth)]
		for _, category := range secondary {
			if n >= opts.CategoryExpansion {
				break
			}
			products := idx.byCategory[category]
			for _, p := range products[:min(len(products), expansionScan)] {
				if c.skip(p.ProductID) {
					continue
				}
				shop, ok := idx.preferredShop(p.ProductID, b.visited)
				if !ok {
					continue
				}
				c.add(statOf(p), shop, fmt.Sprintf("Explore %s products - you've shown some interest in this category", category), models.ConfidenceMedium, TypeCategoryExpansion)
				n++
				break
			}
		}
	}

	n = 0
	similar := 0
	for _, other := range idx.customers {
		if n >= opts.Collaborative || similar >= opts.SimilarCustomers {
			break
		}
		if other.id == b.id || top == "" || other.topCategory() != top {
			continue
		}
		similar++
		checked := 0
		for _, productID := range other.products {
			if checked >= similarScan {
				break
			}
			if b.purchased[productID] {
				continue
			}
			checked++
			info, ok := idx.productInfo[productID]
			if !ok || c.seen[productID] {
				continue
			}
			c.add(statOf(info), idx.anySeller(productID), "Customers with similar preferences also bought this", models.ConfidenceMedium, TypeCollaborative)
			n++
			break
		}
	}

	n = 0
	for _, ps := range idx.trending {
		if n >= opts.Trending {
			break
		}
		if c.skip(ps.productID) {
			continue
		}
		c.add(ps, idx.anySeller(ps.productID), "Trending product - popular among all customers", models.ConfidenceLow, TypeTrending)
		n++
	}
	return c.out
}

// basic builds popularity and category discovery suggestions. It needs
// nothing beyond the transaction table, so it always produces results when
// transactions exist.
func (idx *index) basic(opts Options) []models.CustomerRecommendation {
	type popular struct {
		productStat
		shopCounts map[string]int
		shops      []string
	}
	byProduct := make(map[string]*popular)
	var order []*popular
	for productID, sellers := range idx.sellers {
		p := &popular{productStat: productStat{productID: productID}, shopCounts: make(map[string]int), shops: sellers}
		byProduct[productID] = p
		order = append(order, p)
	}
	for shop, stats := range idx.shopPopular {
		for _, ps := range stats {
			p := byProduct[ps.productID]
			p.quantity += ps.quantity
			p.name, p.category = ps.name, ps.category
			p.shopCounts[shop] += ps.quantity
		}
	}
	slices.SortFunc(order, func(a, b *popular) int { return byQuantityDesc(a.productStat, b.productStat) })
	order = order[:min(len(order), opts.BasicTopProducts)]

	customers := slices.Clone(idx.customers)
	slices.SortStableFunc(customers, func(a, b *behavior) int {
		if c := cmp.Compare(b.transactions, a.transactions); c != 0 {
			return c
		}
		return strings.Compare(a.id, b.id)
	})
	customers = customers[:min(len(customers), opts.BasicTopCustomers)]

	var recs []models.CustomerRecommendation
	for _, b := range customers {
		for _, p := range order[:min(len(order), opts.BasicPerCustomer)] {
			best := p.shops[0]
			for _, s := range p.shops {
				if p.shopCounts[s] > p.shopCounts[best] {
					best = s
				}
			}
			recs = append(recs, models.CustomerRecommendation{
				CustomerID:         b.id,
				ProductID:          p.productID,
				ProductName:        p.name,
				Category:           p.category,
				RecommendedShop:    best,
				Reason:             fmt.Sprintf("Top selling %s product", p.category),
				Confidence:         models.ConfidenceLow,
				RecommendationType: TypePopularityBased,
			})
		}
	}

	var categories []string
	for _, p := range idx.catalog {
		if p.Category != "" && len(idx.byCategory[p.Category]) > 0 && !slices.Contains(categories, p.Category) {
			categories = append(categories, p.Category)
		}
	}
	categories = categories[:min(len(categories), opts.DiscoveryCategories)]
	for _, b := range customers[:min(len(customers), opts.DiscoveryCustomers)] {
		for _, category := range categories {
			p := idx.byCategory[category][0]
			recs = append(recs, models.CustomerRecommendation{
				CustomerID:         b.id,
				ProductID:          p.ProductID,
				ProductName:        p.ProductName,
				Category:           p.Category,
				RecommendedShop:    anyShop,
				Reason:             fmt.Sprintf("Discover %s products", category),
				Confidence:         models.ConfidenceLow,
				RecommendationType: TypeCategoryDiscovery,
			})
		}
	}
	return recs
}
