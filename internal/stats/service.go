// Package stats serves the admin reporting dashboard.
package stats

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/angelmondragon/parcelhub-backend/internal/orders"
	"github.com/angelmondragon/parcelhub-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/parcelhub-backend/pkg/errors"
)

// Service builds dashboard reports.
type Service interface {
	Overview(ctx context.Context, actor orders.Actor, window Window) (*Overview, error)
}

// Overview is the dashboard summary. Amounts are in VND.
type Overview struct {
	From          *time.Time                  `json:"from,omitempty"`
	To            *time.Time                  `json:"to,omitempty"`
	TotalOrders   int64                       `json:"total_orders"`
	ByStatus      map[enums.OrderStatus]int64 `json:"by_status"`
	Active        int64                       `json:"active"`
	PaidOrders    int64                       `json:"paid_orders"`
	Revenue       int64                       `json:"revenue"`
	RevenueByType []ServiceRevenue            `json:"revenue_by_service"`
	CODCollected  int64                       `json:"cod_collected"`
}

type ServiceRevenue struct {
	ServiceType enums.ServiceType `json:"service_type"`
	Orders      int64             `json:"orders"`
	Revenue     int64             `json:"revenue"`
}

type service struct {
	repo Repository
}

// NewService wires the reporting service.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("stats repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) Overview(ctx context.Context, actor orders.Actor, window Window) (*Overview, error) {
	if actor.Role != enums.RoleAdmin {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "admin role required")
	}
	if !window.From.IsZero() && !window.To.IsZero() && !window.From.Before(window.To) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "from must be before to")
	}

	counts, err := s.repo.CountByStatus(ctx, window)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count orders")
	}
	revenue, err := s.repo.RevenueByService(ctx, window)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "sum revenue")
	}
	cod, err := s.repo.CODCollected(ctx, window)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "sum cod")
	}

	out := &Overview{
		ByStatus:      make(map[enums.OrderStatus]int64, len(counts)),
		RevenueByType: make([]ServiceRevenue, 0, len(revenue)),
		CODCollected:  cod,
	}
	if !window.From.IsZero() {
		from := window.From
		out.From = &from
	}
	if !window.To.IsZero() {
		to := window.To
		out.To = &to
	}
	for _, row := range counts {
		out.ByStatus[row.Status] = row.Count
		out.TotalOrders += row.Count
		if !row.Status.IsTerminal() && row.Status != enums.OrderStatusReturned {
			out.Active += row.Count
		}
	}
	for _, row := range revenue {
		out.PaidOrders += row.Orders
		out.Revenue += row.Revenue
		out.RevenueByType = append(out.RevenueByType, ServiceRevenue(row))
	}
	sort.Slice(out.RevenueByType, func(i, j int) bool {
		return out.RevenueByType[i].ServiceType < out.RevenueByType[j].ServiceType
	})
	return out, nil
}
