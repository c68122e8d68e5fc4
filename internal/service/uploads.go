package service

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/mmeshcher/cafebloom/internal/validation"
)

// ImageBucket задаёт бакет изображений блюд.
const ImageBucket = "food-images"

// UploadImage проверяет изображение и загружает его под случайным именем
// с расширением по типу содержимого.
// Возвращает публичный адрес файла.
func (s *Service) UploadImage(ctx context.Context, filename, contentType string, data []byte) (string, error) {
	if err := validation.Image(contentType, int64(len(data))); err != nil {
		return "", err
	}

	path := ImageBucket + "/" + uuid.NewString() + "." + validation.ImageExtension(contentType)

	publicURL, err := s.repo.Upload(ctx, ImageBucket, path, contentType, data)
	if err != nil {
		s.logFailure("upload image error", err, zap.String("path", path), zap.String("filename", filename))
		return "", err
	}
	return publicURL, nil
}
