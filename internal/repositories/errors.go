package repositories

import (
	"context"
	"database/sql/driver"
	"errors"
	"fmt"

	"github.com/anonto42/storyhive/backend/internal/apperror"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"gorm.io/gorm"
)

// parseObjectID converts a hex id; malformed ids cannot exist, so they are NotFound.
func parseObjectID(id, entity string) (primitive.ObjectID, error) {
	objID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return primitive.NilObjectID, apperror.NotFound("%s not found", entity)
	}
	return objID, nil
}

func parseObjectIDs(ids []string) []primitive.ObjectID {
	out := make([]primitive.ObjectID, 0, len(ids))
	for _, id := range ids {
		if objID, err := primitive.ObjectIDFromHex(id); err == nil {
			out = append(out, objID)
		}
	}
	return out
}

func isUnavailable(err error) bool {
	return errors.Is(err, context.DeadlineExceeded) ||
		errors.Is(err, context.Canceled) ||
		errors.Is(err, driver.ErrBadConn)
}

func translateMongoError(err error, entity string) error {
	if err == nil {
		return nil
	}
	var appErr *apperror.Error
	if errors.As(err, &appErr) {
		return err
	}
	switch {
	case errors.Is(err, mongo.ErrNoDocuments):
		return apperror.NotFound("%s not found", entity)
	case mongo.IsDuplicateKeyError(err):
		return apperror.Conflict("%s already exists", entity)
	case mongo.IsNetworkError(err), mongo.IsTimeout(err), isUnavailable(err):
		return apperror.StorageUnavailable(err, "%s store unavailable", entity)
	}
	return fmt.Errorf("%s: %w", entity, err)
}

func translateGormError(err error, entity string) error {
	if err == nil {
		return nil
	}
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return apperror.NotFound("%s not found", entity)
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return apperror.Conflict("%s already exists", entity)
	case isUnavailable(err):
		return apperror.StorageUnavailable(err, "%s store unavailable", entity)
	}
	return fmt.Errorf("%s: %w", entity, err)
}
