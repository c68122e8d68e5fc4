package service

import (
	"context"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/mmeshcher/cafebloom/internal/backend"
	"github.com/mmeshcher/cafebloom/internal/model"
)

const (
	dashboardRecentOrders = 3
	dashboardPopularItems = 3
)

// Dashboard собирает сводку для панели администратора.
func (s *Service) Dashboard(ctx context.Context) (*model.DashboardStats, error) {
	var (
		orders []model.Order
		items  []model.MenuItem
		users  int
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		orders, err = s.listOrders(gctx, backend.OrderQuery{})
		return err
	})
	g.Go(func() error {
		var err error
		items, err = s.ListMenuItems(gctx, MenuFilter{Category: model.CategoryAll})
		return err
	})
	g.Go(func() error {
		var err error
		users, err = s.repo.CountProfiles(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		s.logFailure("dashboard error", err)
		return nil, err
	}

	return buildDashboard(orders, len(items), users), nil
}

// buildDashboard считает сводку по заказам, упорядоченным от новых к старым.
func buildDashboard(orders []model.Order, menuItems, users int) *model.DashboardStats {
	stats := &model.DashboardStats{
		TotalOrders:  len(orders),
		MenuItems:    menuItems,
		ActiveUsers:  users,
		ByStatus:     map[string]int{},
		RecentOrders: []model.Order{},
		PopularItems: []model.PopularItem{},
	}

	popular := map[string]*model.PopularItem{}
	for _, o := range orders {
		stats.Revenue += o.Total()
		stats.ByStatus[string(o.Status)]++

		for _, l := range o.Items {
			p, ok := popular[l.ID]
			if !ok {
				p = &model.PopularItem{ItemID: l.ID, Name: l.Name, Price: l.Price}
				popular[l.ID] = p
			}
			p.Quantity += l.Quantity
		}
	}

	if len(orders) > dashboardRecentOrders {
		stats.RecentOrders = append(stats.RecentOrders, orders[:dashboardRecentOrders]...)
	} else {
		stats.RecentOrders = append(stats.RecentOrders, orders...)
	}

	for _, p := range popular {
		stats.PopularItems = append(stats.PopularItems, *p)
	}
	sort.Slice(stats.PopularItems, func(i, j int) bool {
		a, b := stats.PopularItems[i], stats.PopularItems[j]
		if a.Quantity != b.Quantity {
			return a.Quantity > b.Quantity
		}
		return a.Name < b.Name
	})
	if len(stats.PopularItems) > dashboardPopularItems {
		stats.PopularItems = stats.PopularItems[:dashboardPopularItems]
	}

	return stats
}
