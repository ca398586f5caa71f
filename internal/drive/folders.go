package drive

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	drive "google.golang.org/api/drive/v3"

	"github.com/teemow/workspacekit/internal/apierror"
	"github.com/teemow/workspacekit/internal/batch"
	"github.com/teemow/workspacekit/internal/logging"
	"github.com/teemow/workspacekit/internal/provider"
)

// CreateFolder creates a folder under parentID, or under the root folder
// when parentID is empty.
func (s *Service) CreateFolder(ctx context.Context, name, parentID string) (*Item, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, apierror.Invalid("folder name is required")
	}
	body := &drive.File{Name: name, MimeType: FolderMimeType}
	if parentID != "" {
		body.Parents = []string{parentID}
	}
	var f drive.File
	if err := s.do(ctx, "folders.create", http.MethodPost, "files", "", withFields(itemFields), body, &f); err != nil {
		return nil, err
	}
	return fromAPIFile(&f), nil
}

// BatchCreateFolders creates one folder per name under parentID. Result ids
// are the names.
func (s *Service) BatchCreateFolders(ctx context.Context, names []string, parentID string) (batch.Results[*Item], error) {
	return batch.Run(ctx, s.batchOptions("folders.batchCreate"), names, func(ctx context.Context, _ int, name string) (*Item, error) {
		return s.CreateFolder(ctx, name, parentID)
	})
}

// FolderContents lists the items directly inside folderID, at most MaxLimit.
func (s *Service) FolderContents(ctx context.Context, folderID string) ([]*Item, error) {
	if err := requireID("folder", folderID); err != nil {
		return nil, err
	}
	return s.Query().InFolder(folderID).OrderBy("folder,name").Limit(MaxLimit).Execute(ctx)
}

// ParentFolder returns the first parent of id, or nil for items at the top of
// a drive.
func (s *Service) ParentFolder(ctx context.Context, id string) (*Item, error) {
	item, err := s.GetItem(ctx, id)
	if err != nil {
		return nil, err
	}
	if item.Parent() == "" {
		return nil, nil
	}
	return s.GetItem(ctx, item.Parent())
}

// FolderByPath resolves a slash separated path such as "Projects/2024"
// starting at the root folder.
func (s *Service) FolderByPath(ctx context.Context, path string) (*Item, error) {
	segments := splitPath(path)
	if len(segments) == 0 {
		return s.GetItem(ctx, RootID)
	}
	var (
		parent = RootID
		folder *Item
	)
	for i, name := range segments {
		f, err := s.childFolder(ctx, parent, name)
		if err != nil {
			return nil, err
		}
		if f == nil {
			return nil, apierror.NotFound(provider.ServiceDrive, "folders.byPath", strings.Join(segments[:i+1], "/"))
		}
		folder, parent = f, f.ID
	}
	return folder, nil
}

// CreateFolderPath makes sure every folder of path exists, creating the
// missing ones, and returns the last.
func (s *Service) CreateFolderPath(ctx context.Context, path string) (*Item, error) {
	segments := splitPath(path)
	if len(segments) == 0 {
		return nil, apierror.Invalid("folder path is required")
	}
	var (
		parent = RootID
		folder *Item
	)
	for _, name := range segments {
		f, err := s.childFolder(ctx, parent, name)
		if err != nil {
			return nil, err
		}
		if f == nil {
			if f, err = s.CreateFolder(ctx, name, parent); err != nil {
				return nil, err
			}
			s.logger.Debug("folder created",
				logging.Service(provider.ServiceDrive),
				slog.String("name", name),
				slog.String("parent", parent))
		}
		folder, parent = f, f.ID
	}
	return folder, nil
}

func (s *Service) childFolder(ctx context.Context, parentID, name string) (*Item, error) {
	return s.Query().NameIs(name).InFolder(parentID).FoldersOnly().First(ctx)
}

func splitPath(path string) []string {
	var out []string
	for _, seg := range strings.Split(path, "/") {
		if seg = strings.TrimSpace(seg); seg != "" {
			out = append(out, seg)
		}
	}
	return out
}
