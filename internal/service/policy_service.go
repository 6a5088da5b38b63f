package service

import (
	"context"
	"errors"

	"posgrocery/internal/apierror"
	"posgrocery/internal/dto"
	"posgrocery/internal/model"
	"posgrocery/internal/repository"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// CostPolicyService resolves the valuation method per product. Products
// without an explicit policy use the configured default. Changing a policy
// never re-values past ledger entries — only movements after the change.
type CostPolicyService interface {
	Resolve(ctx context.Context, productID uuid.UUID) (model.CostMethod, error)
	Get(ctx context.Context, productID uuid.UUID) (*dto.CostPolicyResponse, error)
	Set(ctx context.Context, productID uuid.UUID, req dto.SetCostPolicyRequest) (*dto.CostPolicyResponse, error)
}

type costPolicyService struct {
	repo          repository.CostPolicyRepository
	products      repository.ProductRepository
	defaultMethod model.CostMethod
}

func NewCostPolicyService(repo repository.CostPolicyRepository, products repository.ProductRepository, defaultMethod model.CostMethod) CostPolicyService {
	if !defaultMethod.IsValid() {
		defaultMethod = model.MethodAverage
	}
	return &costPolicyService{repo: repo, products: products, defaultMethod: defaultMethod}
}

func (s *costPolicyService) Resolve(ctx context.Context, productID uuid.UUID) (model.CostMethod, error) {
	p, err := s.repo.Find(ctx, productID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return s.defaultMethod, nil
		}
		return "", apierror.Internal(err)
	}
	return p.Method, nil
}

func (s *costPolicyService) Get(ctx context.Context, productID uuid.UUID) (*dto.CostPolicyResponse, error) {
	p, err := s.repo.Find(ctx, productID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return &dto.CostPolicyResponse{
				ProductID: productID.String(),
				Method:    string(s.defaultMethod),
				Defaulted: true,
			}, nil
		}
		return nil, apierror.Internal(err)
	}
	return &dto.CostPolicyResponse{ProductID: productID.String(), Method: string(p.Method)}, nil
}

func (s *costPolicyService) Set(ctx context.Context, productID uuid.UUID, req dto.SetCostPolicyRequest) (*dto.CostPolicyResponse, error) {
	method := model.CostMethod(req.Method)
	if !method.IsValid() {
		return nil, apierror.Validation("unknown cost method: " + req.Method)
	}
	if _, err := s.products.FindByID(ctx, productID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apierror.NotFound("product not found")
		}
		return nil, apierror.Internal(err)
	}
	if err := s.repo.Upsert(ctx, &model.CostPolicy{ProductID: productID, Method: method}); err != nil {
		return nil, apierror.Internal(err)
	}
	return &dto.CostPolicyResponse{ProductID: productID.String(), Method: req.Method}, nil
}
