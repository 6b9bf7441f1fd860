package workspace

import (
	"context"
	"sort"
	"strings"

	"filespace/internal/domain"
	models "filespace/internal/domain/models/workspace"
)

// Repair brings the records in line with the objects: orphan objects get a
// file record, file records without an object are removed, and marker
// objects without a folder record get one. Safe to run repeatedly.
func (s *treeService) Repair(ctx context.Context, ownerID string) (*models.RepairReport, error) {
	snap, err := s.load(ctx, ownerID)
	if err != nil {
		return nil, err
	}

	report := &models.RepairReport{
		FileRecordsCreated:   []string{},
		FileRecordsRemoved:   []string{},
		FolderRecordsCreated: []string{},
	}
	now := nowUTC()
	live := make(map[string]struct{}, len(snap.blobs))

	for i := range snap.blobs {
		blob := &snap.blobs[i]
		live[blob.Pathname] = struct{}{}

		if blob.IsFolderMarker() {
			if _, ok := snap.folders[blob.Pathname]; ok {
				continue
			}
			rel := strings.TrimPrefix(blob.Pathname, snap.prefix)
			if err := s.stores.Folders.Put(ctx, newFolderRecord(ownerID, snap.prefix, rel, now)); err != nil {
				return nil, domain.NewMetadataError("put", blob.Pathname, err)
			}
			report.FolderRecordsCreated = append(report.FolderRecordsCreated, blob.Pathname)
			continue
		}

		if _, ok := snap.files[blob.Pathname]; ok {
			continue
		}
		if err := s.stores.Files.Put(ctx, newFileRecord(ownerID, snap.prefix, blob, now)); err != nil {
			return nil, domain.NewMetadataError("put", blob.Pathname, err)
		}
		report.FileRecordsCreated = append(report.FileRecordsCreated, blob.Pathname)
	}

	for pathname := range snap.files {
		if _, ok := live[pathname]; ok {
			continue
		}
		if err := s.stores.Files.Delete(ctx, ownerID, pathname); err != nil {
			return nil, domain.NewMetadataError("delete", pathname, err)
		}
		report.FileRecordsRemoved = append(report.FileRecordsRemoved, pathname)
	}

	sort.Strings(report.FileRecordsRemoved)

	s.logger.Info("repair completed",
		"owner_id", ownerID,
		"file_records_created", len(report.FileRecordsCreated),
		"file_records_removed", len(report.FileRecordsRemoved),
		"folder_records_created", len(report.FolderRecordsCreated),
	)
	return report, nil
}
