// Package catalog предоставляет неизменяемый каталог товаров витрины.
package catalog

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/Sivlinh/CloverLeaf/internal/model"
)

// AllProducts значение фильтра категории, отключающее фильтрацию.
const AllProducts = "All Products"

// ErrProductNotFound возвращается, если товара с указанным идентификатором нет в каталоге.
var ErrProductNotFound = errors.New("product not found")

type productRecord struct {
	id       int64
	title    string
	price    string
	category string
	rating   float64
	image    string
}

// Catalog хранит статический список товаров. Безопасен для конкурентного чтения.
type Catalog struct {
	products []model.Product
	byID     map[int64]int
}

// New создаёт каталог из переданных товаров. Идентификаторы должны быть уникальны.
func New(products []model.Product) (*Catalog, error) {
	c := &Catalog{
		products: make([]model.Product, 0, len(products)),
		byID:     make(map[int64]int, len(products)),
	}

	for _, p := range products {
		if _, dup := c.byID[p.ID]; dup {
			return nil, fmt.Errorf("duplicate product id %d", p.ID)
		}
		if p.Price.IsNegative() {
			return nil, fmt.Errorf("product %d: negative price", p.ID)
		}
		if p.Rating < 0 || p.Rating > 5 {
			return nil, fmt.Errorf("product %d: rating %v out of range", p.ID, p.Rating)
		}
		c.byID[p.ID] = len(c.products)
		c.products = append(c.products, clone(p))
	}

	return c, nil
}

// Default возвращает каталог с ассортиментом по умолчанию.
func Default() *Catalog {
	products := make([]model.Product, 0, len(defaultProducts))
	for _, r := range defaultProducts {
		products = append(products, model.Product{
			ID:       r.id,
			Title:    r.title,
			Price:    decimal.RequireFromString(r.price),
			Category: model.Categories{r.category},
			Rating:   r.rating,
			Images:   []string{r.image},
		})
	}

	c, err := New(products)
	if err != nil {
		panic(err)
	}
	return c
}

// All возвращает копию всех товаров в порядке каталога.
func (c *Catalog) All() []model.Product {
	res := make([]model.Product, 0, len(c.products))
	for _, p := range c.products {
		res = append(res, clone(p))
	}
	return res
}

// Get возвращает товар по идентификатору.
func (c *Catalog) Get(id int64) (model.Product, error) {
	idx, ok := c.byID[id]
	if !ok {
		return model.Product{}, fmt.Errorf("%w: %d", ErrProductNotFound, id)
	}
	return clone(c.products[idx]), nil
}

// Filter возвращает товары указанной категории, в названии которых встречается search.
// Пустая категория и AllProducts не ограничивают выборку, поиск не учитывает регистр.
func (c *Catalog) Filter(category, search string) []model.Product {
	category = strings.TrimSpace(category)
	search = strings.ToLower(strings.TrimSpace(search))
	if (category == "" || category == AllProducts) && search == "" {
		return c.All()
	}

	res := make([]model.Product, 0)
	for _, p := range c.products {
		if category != "" && category != AllProducts && !p.Category.Has(category) {
			continue
		}
		if search != "" && !strings.Contains(strings.ToLower(p.Title), search) {
			continue
		}
		res = append(res, clone(p))
	}
	return res
}

// Categories возвращает список категорий в порядке первого появления.
func (c *Catalog) Categories() []string {
	seen := make(map[string]struct{})
	var res []string
	for _, p := range c.products {
		for _, name := range p.Category {
			if _, ok := seen[name]; ok {
				continue
			}
			seen[name] = struct{}{}
			res = append(res, name)
		}
	}
	return res
}

func clone(p model.Product) model.Product {
	p.Category = append(model.Categories(nil), p.Category...)
	p.Images = append([]string(nil), p.Images...)
	return p
}
