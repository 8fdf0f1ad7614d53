package services

import (
	"context"

	"github.com/anonto42/storyhive/backend/internal/models"
	"github.com/anonto42/storyhive/backend/internal/repositories"
	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// summaryIndex maps user ids to their cards. Unknown ids get a bare card.
type summaryIndex map[string]models.UserSummary

func (s summaryIndex) get(id string) models.UserSummary {
	if summary, ok := s[id]; ok {
		return summary
	}
	return models.UserSummary{ID: id}
}

// summariesByID loads user cards for ids. A failed lookup degrades to bare
// cards instead of failing the read.
func summariesByID(ctx context.Context, users repositories.UserRepository, ids []string, log logrus.FieldLogger) summaryIndex {
	index := summaryIndex{}
	if len(ids) == 0 {
		return index
	}
	found, err := users.GetUsersByIDs(ctx, uniqueStrings(ids))
	if err != nil {
		log.WithError(err).Warn("user summaries unavailable")
		return index
	}
	for i := range found {
		index[found[i].ID.Hex()] = found[i].ToSummary()
	}
	return index
}

func summariesOf(ctx context.Context, users repositories.UserRepository, ids []primitive.ObjectID, log logrus.FieldLogger) []models.UserSummary {
	hexIDs := hexes(ids)
	index := summariesByID(ctx, users, hexIDs, log)
	out := make([]models.UserSummary, 0, len(hexIDs))
	for _, id := range hexIDs {
		if summary, ok := index[id]; ok {
			out = append(out, summary)
		}
	}
	return out
}

func hexes(ids []primitive.ObjectID) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = id.Hex()
	}
	return out
}

func uniqueStrings(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
