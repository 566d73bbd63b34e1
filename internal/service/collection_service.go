package service

import (
	"context"

	"github.com/quizsmith/quizsmith-backend/internal/model"
	"github.com/quizsmith/quizsmith-backend/internal/repository"
	"github.com/rs/zerolog"
)

type CollectionService struct {
	collectionRepo *repository.CollectionRepository
	log            zerolog.Logger
}

func NewCollectionService(collectionRepo *repository.CollectionRepository, log zerolog.Logger) *CollectionService {
	return &CollectionService{
		collectionRepo: collectionRepo,
		log:            log.With().Str("component", "collection_service").Logger(),
	}
}

func (s *CollectionService) GetAll(ctx context.Context) ([]model.Collection, error) {
	return s.collectionRepo.GetAll(ctx)
}

func (s *CollectionService) Create(ctx context.Context, c *model.Collection) error {
	return s.collectionRepo.Create(ctx, c)
}

func (s *CollectionService) Update(ctx context.Context, c *model.Collection) error {
	return s.collectionRepo.Update(ctx, c)
}

func (s *CollectionService) Delete(ctx context.Context, id int) error {
	return s.collectionRepo.Delete(ctx, id)
}
