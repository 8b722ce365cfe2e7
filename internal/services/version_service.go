// internal/services/version_service.go
package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/javajoker/verdict-cms/internal/models"
	"github.com/javajoker/verdict-cms/internal/repository"
	"github.com/javajoker/verdict-cms/internal/utils"
)

// VersionService keeps a hash-chained history of published product states.
// Each version's hash covers its snapshot and the previous version's hash,
// so rewriting any stored snapshot breaks every later link.
type VersionService struct {
	versions repository.VersionRepository
	log      logrus.FieldLogger
}

var _ VersionRecorder = (*VersionService)(nil)

type ChainReport struct {
	ProductID uuid.UUID `json:"product_id"`
	Versions  int       `json:"versions"`
	Valid     bool      `json:"valid"`
	BrokenAt  int       `json:"broken_at,omitempty"`
	Reason    string    `json:"reason,omitempty"`
}

func NewVersionService(versions repository.VersionRepository, log logrus.FieldLogger) *VersionService {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &VersionService{versions: versions, log: log}
}

// Snapshot appends the current state of p to its version chain.
func (s *VersionService) Snapshot(ctx context.Context, p *models.Product, createdBy *uuid.UUID) (*models.ProductVersion, error) {
	snapshot, err := SnapshotOf(p)
	if err != nil {
		return nil, err
	}

	v, err := s.versions.Append(ctx, p.ID, func(latest *models.ProductVersion) (*models.ProductVersion, error) {
		next := &models.ProductVersion{
			ProductID: p.ID,
			Version:   1,
			Status:    string(p.Status),
			Verdict:   string(p.Verdict),
			Snapshot:  snapshot,
			CreatedBy: createdBy,
		}
		if latest != nil {
			next.Version = latest.Version + 1
			next.PreviousHash = latest.ContentHash
		}
		hash, err := ChainHash(next.PreviousHash, next.Version, next.Snapshot)
		if err != nil {
			return nil, err
		}
		next.ContentHash = hash
		return next, nil
	})
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrProductNotFound
		}
		return nil, fmt.Errorf("failed to append version: %w", err)
	}

	s.log.WithFields(logrus.Fields{
		"product_id": p.ID.String(),
		"version":    v.Version,
		"hash":       v.ContentHash,
	}).Info("Product version recorded")
	return v, nil
}

func (s *VersionService) ListVersions(ctx context.Context, productID uuid.UUID) ([]models.ProductVersion, error) {
	return s.versions.ListByProduct(ctx, productID)
}

// VerifyChain recomputes every hash in the product's history.
func (s *VersionService) VerifyChain(ctx context.Context, productID uuid.UUID) (*ChainReport, error) {
	versions, err := s.versions.ListByProduct(ctx, productID)
	if err != nil {
		return nil, fmt.Errorf("failed to load versions: %w", err)
	}
	return VerifyVersions(productID, versions), nil
}

// VerifyVersions checks a version list ordered by version number.
func VerifyVersions(productID uuid.UUID, versions []models.ProductVersion) *ChainReport {
	report := &ChainReport{ProductID: productID, Versions: len(versions), Valid: true}

	previous := ""
	for i, v := range versions {
		fail := func(reason string) *ChainReport {
			report.Valid = false
			report.BrokenAt = v.Version
			report.Reason = reason
			return report
		}

		if v.Version != i+1 {
			return fail(fmt.Sprintf("expected version %d", i+1))
		}
		if v.PreviousHash != previous {
			return fail("previous hash does not match the prior version")
		}
		hash, err := ChainHash(v.PreviousHash, v.Version, v.Snapshot)
		if err != nil {
			return fail(err.Error())
		}
		if hash != v.ContentHash {
			return fail("content hash mismatch")
		}
		previous = v.ContentHash
	}
	return report
}

// SnapshotOf converts a product into the JSON document stored with a version.
func SnapshotOf(p *models.Product) (models.JSONB, error) {
	doc := p.Clone()
	doc.Category, doc.Brand = nil, nil

	raw, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("failed to encode snapshot: %w", err)
	}
	var snapshot models.JSONB
	if err := json.Unmarshal(raw, &snapshot); err != nil {
		return nil, fmt.Errorf("failed to decode snapshot: %w", err)
	}
	return snapshot, nil
}

// ChainHash is sha256(previousHash, version, canonical snapshot JSON).
// encoding/json sorts map keys, which makes the encoding canonical.
func ChainHash(previousHash string, version int, snapshot models.JSONB) (string, error) {
	body, err := json.Marshal(snapshot)
	if err != nil {
		return "", fmt.Errorf("failed to encode snapshot: %w", err)
	}
	payload := previousHash + "\n" + strconv.Itoa(version) + "\n" + string(body)
	return utils.HashString(payload), nil
}
