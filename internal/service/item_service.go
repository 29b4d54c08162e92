package service

import (
	"context"
	"errors"

	"rentalcash/internal/dto"
	"rentalcash/internal/model"
	"rentalcash/internal/repository"
	"rentalcash/internal/tenant"
)

// ItemService maintains the rentable catalog read by the rental hooks.
type ItemService interface {
	Create(ctx context.Context, scope tenant.Scope, req dto.CreateItemRequest) (*dto.ItemResponse, error)
	List(ctx context.Context, scope tenant.Scope, q dto.PageQuery) (*dto.ItemListResponse, error)
	FindByBarcode(ctx context.Context, scope tenant.Scope, barcode string) (*dto.ItemResponse, error)
}

type itemService struct {
	items repository.ItemRepository
}

func NewItemService(repos repository.Set) ItemService {
	return &itemService{items: repos.Items}
}

func (s *itemService) Create(ctx context.Context, scope tenant.Scope, req dto.CreateItemRequest) (*dto.ItemResponse, error) {
	if req.Price.IsNegative() || req.Stock < 0 {
		return nil, ErrInvalidAmount
	}
	it := &model.Item{
		Barcode:   req.Barcode,
		Name:      req.Name,
		Price:     req.Price.Round(2),
		IsGeneric: req.IsGeneric,
		Status:    model.ItemAvailable,
	}
	if req.IsGeneric {
		it.StockTotal = req.Stock
		it.StockAvailable = req.Stock
	} else {
		it.StockTotal = 1
		it.StockAvailable = 1
	}
	if err := s.items.Create(ctx, scope, it); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, ErrDuplicateItem
		}
		return nil, err
	}
	resp := toItemResponse(it)
	return &resp, nil
}

func (s *itemService) List(ctx context.Context, scope tenant.Scope, q dto.PageQuery) (*dto.ItemListResponse, error) {
	rows, total, err := s.items.List(ctx, scope, repository.Page{Page: q.Page, Limit: q.Limit})
	if err != nil {
		return nil, err
	}
	data := make([]dto.ItemResponse, 0, len(rows))
	for i := range rows {
		data = append(data, toItemResponse(&rows[i]))
	}
	return &dto.ItemListResponse{Data: data, Total: total, Page: q.Page, Limit: q.Limit}, nil
}

func (s *itemService) FindByBarcode(ctx context.Context, scope tenant.Scope, barcode string) (*dto.ItemResponse, error) {
	it, err := s.items.FindByBarcode(ctx, scope, barcode)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrItemNotFound
		}
		return nil, err
	}
	resp := toItemResponse(it)
	return &resp, nil
}
