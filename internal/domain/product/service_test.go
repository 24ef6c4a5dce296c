package product_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/lineside/mes/internal/domain/product"
	"github.com/lineside/mes/internal/repository"
	"github.com/lineside/mes/internal/repository/mocks"
)

func TestProductService_Create(t *testing.T) {
	ctx := context.Background()
	productsRepo := &mocks.ProductRepository{}
	partsRepo := &mocks.PartRepository{}

	productsRepo.On("Create", ctx, mock.Anything).Return(nil)

	svc := product.NewService(productsRepo, partsRepo, nil)
	p, err := svc.Create(ctx, product.CreateRequest{Name: "Widget", IsActive: true})
	require.NoError(t, err)
	require.NotEmpty(t, p.ID)
	require.True(t, p.IsActive)
}

func TestProductService_Create_RejectsBlankName(t *testing.T) {
	svc := product.NewService(&mocks.ProductRepository{}, &mocks.PartRepository{}, nil)
	_, err := svc.Create(context.Background(), product.CreateRequest{Name: "   "})
	require.ErrorIs(t, err, product.ErrInvalidInput)
}

func TestProductService_Get_NotFound(t *testing.T) {
	ctx := context.Background()
	productsRepo := &mocks.ProductRepository{}
	productsRepo.On("Get", ctx, "missing").Return(nil, repository.ErrNotFound)

	svc := product.NewService(productsRepo, &mocks.PartRepository{}, nil)
	_, err := svc.Get(ctx, "missing")
	require.ErrorIs(t, err, product.ErrProductNotFound)
}

func TestProductService_CreatePart(t *testing.T) {
	ctx := context.Background()
	partsRepo := &mocks.PartRepository{}
	partsRepo.On("Create", ctx, mock.Anything).Return(nil)

	svc := product.NewService(&mocks.ProductRepository{}, partsRepo, nil)
	part, err := svc.CreatePart(ctx, product.PartCreateRequest{
		PartNumber: "PN-100",
		PartName:   "Bearing",
	})
	require.NoError(t, err)
	require.Equal(t, "PN-100", part.PartNumber)

	_, err = svc.CreatePart(ctx, product.PartCreateRequest{PartNumber: "PN-101"})
	require.ErrorIs(t, err, product.ErrInvalidInput)
}
