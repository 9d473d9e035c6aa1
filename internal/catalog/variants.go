package catalog

import (
	"strings"

	"github.com/eppla/storefront/internal/types"
)

// groupVariants fills Colors for every product whose model is shared with
// another product. Every member of a family sees the same member list.
func groupVariants(products []types.Product, labels map[string]string, includeSelf bool) {
	families := make(map[string][]int)
	var order []string
	for i, p := range products {
		model := strings.TrimSpace(p.Model)
		if model == "" {
			continue
		}
		if _, ok := families[model]; !ok {
			order = append(order, model)
		}
		families[model] = append(families[model], i)
	}

	for _, model := range order {
		members := families[model]
		if len(members) < 2 {
			continue
		}
		for _, i := range members {
			colors := make([]types.ColorVariant, 0, len(members))
			for _, j := range members {
				if i == j && !includeSelf {
					continue
				}
				colors = append(colors, types.ColorVariant{
					ProductID: products[j].ID,
					Name:      labels[products[j].ID],
					Image:     products[j].Image,
				})
			}
			products[i].Colors = colors
		}
	}
}

// Family returns the ids of every product sharing the model of id, including id
func Family(products []types.Product, id string) []string {
	var model string
	for _, p := range products {
		if p.ID == id {
			model = strings.TrimSpace(p.Model)
			break
		}
	}
	if model == "" {
		return []string{id}
	}

	var ids []string
	for _, p := range products {
		if strings.TrimSpace(p.Model) == model {
			ids = append(ids, p.ID)
		}
	}
	return ids
}
