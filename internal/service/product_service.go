package service

import (
	"context"
	"errors"
	"time"

	"posgrocery/internal/apierror"
	"posgrocery/internal/dto"
	"posgrocery/internal/model"
	"posgrocery/internal/repository"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ProductService interface {
	Create(ctx context.Context, req dto.CreateProductRequest) (*dto.ProductResponse, error)
	GetByID(ctx context.Context, id uuid.UUID) (*dto.ProductResponse, error)
	GetByBarcode(ctx context.Context, barcode string) (*dto.ProductResponse, error)
	List(ctx context.Context, filter dto.ProductFilter) (*dto.ProductListResponse, error)
	Update(ctx context.Context, id uuid.UUID, req dto.UpdateProductRequest) (*dto.ProductResponse, error)
	Deactivate(ctx context.Context, id uuid.UUID) error
	Reactivate(ctx context.Context, id uuid.UUID) error
}

type productService struct {
	products  repository.ProductRepository
	suppliers repository.SupplierRepository
}

func NewProductService(products repository.ProductRepository, suppliers repository.SupplierRepository) ProductService {
	return &productService{products: products, suppliers: suppliers}
}

func (s *productService) Create(ctx context.Context, req dto.CreateProductRequest) (*dto.ProductResponse, error) {
	if req.SalePrice.IsNegative() {
		return nil, apierror.Validation("sale_price must not be negative")
	}

	p := &model.Product{
		Barcode:   req.Barcode,
		Name:      req.Name,
		Category:  req.Category,
		SalePrice: req.SalePrice,
	}
	if p.Category == "" {
		p.Category = "general"
	}
	if req.SupplierID != nil {
		sid, err := uuid.Parse(*req.SupplierID)
		if err != nil {
			return nil, apierror.Validation("invalid supplier_id")
		}
		if _, err := s.suppliers.FindByID(ctx, sid); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, apierror.NotFound("supplier not found")
			}
			return nil, apierror.Internal(err)
		}
		p.SupplierID = &sid
	}

	if err := s.products.Create(ctx, p); err != nil {
		if isDuplicateKey(err) {
			return nil, apierror.Conflict(apierror.CodeDuplicateKey, "barcode already exists")
		}
		return nil, apierror.Internal(err)
	}
	return productToResponse(p), nil
}

func (s *productService) GetByID(ctx context.Context, id uuid.UUID) (*dto.ProductResponse, error) {
	p, err := s.products.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apierror.NotFound("product not found")
		}
		return nil, apierror.Internal(err)
	}
	return productToResponse(p), nil
}

func (s *productService) GetByBarcode(ctx context.Context, barcode string) (*dto.ProductResponse, error) {
	p, err := s.products.FindByBarcode(ctx, barcode)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apierror.NotFound("product not found")
		}
		return nil, apierror.Internal(err)
	}
	return productToResponse(p), nil
}

func (s *productService) List(ctx context.Context, filter dto.ProductFilter) (*dto.ProductListResponse, error) {
	products, total, err := s.products.List(ctx, filter)
	if err != nil {
		return nil, apierror.Internal(err)
	}
	resp := &dto.ProductListResponse{
		Data:  make([]dto.ProductResponse, 0, len(products)),
		Total: total,
		Page:  filter.Page,
		Limit: filter.Limit,
	}
	for i := range products {
		resp.Data = append(resp.Data, *productToResponse(&products[i]))
	}
	return resp, nil
}

// Update touches catalog fields only. Stock state (QtyOnHand, AvgUnitCost)
// moves exclusively through receiving, sales and adjustments.
func (s *productService) Update(ctx context.Context, id uuid.UUID, req dto.UpdateProductRequest) (*dto.ProductResponse, error) {
	p, err := s.products.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apierror.NotFound("product not found")
		}
		return nil, apierror.Internal(err)
	}

	if req.Name != nil {
		p.Name = *req.Name
	}
	if req.Category != nil {
		p.Category = *req.Category
	}
	if req.SalePrice != nil {
		if req.SalePrice.IsNegative() {
			return nil, apierror.Validation("sale_price must not be negative")
		}
		p.SalePrice = *req.SalePrice
	}
	if req.SupplierID != nil {
		sid, err := uuid.Parse(*req.SupplierID)
		if err != nil {
			return nil, apierror.Validation("invalid supplier_id")
		}
		if _, err := s.suppliers.FindByID(ctx, sid); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, apierror.NotFound("supplier not found")
			}
			return nil, apierror.Internal(err)
		}
		p.SupplierID = &sid
	}

	if err := s.products.Update(ctx, p); err != nil {
		return nil, apierror.Internal(err)
	}
	return productToResponse(p), nil
}

func (s *productService) Deactivate(ctx context.Context, id uuid.UUID) error {
	if _, err := s.products.FindByID(ctx, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apierror.NotFound("product not found")
		}
		return apierror.Internal(err)
	}
	if err := s.products.SoftDelete(ctx, id); err != nil {
		return apierror.Internal(err)
	}
	return nil
}

func (s *productService) Reactivate(ctx context.Context, id uuid.UUID) error {
	if _, err := s.products.FindByID(ctx, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apierror.NotFound("product not found")
		}
		return apierror.Internal(err)
	}
	if err := s.products.Reactivate(ctx, id); err != nil {
		return apierror.Internal(err)
	}
	return nil
}

func productToResponse(p *model.Product) *dto.ProductResponse {
	resp := &dto.ProductResponse{
		ID:          p.ID.String(),
		Barcode:     p.Barcode,
		Name:        p.Name,
		Category:    p.Category,
		SalePrice:   p.SalePrice,
		QtyOnHand:   p.QtyOnHand,
		AvgUnitCost: p.AvgUnitCost,
		Active:      p.Active,
		CreatedAt:   p.CreatedAt.Format(time.RFC3339),
	}
	if p.SupplierID != nil {
		sid := p.SupplierID.String()
		resp.SupplierID = &sid
	}
	return resp
}
