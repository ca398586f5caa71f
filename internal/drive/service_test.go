package drive

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	drive "google.golang.org/api/drive/v3"

	"github.com/teemow/workspacekit/internal/apierror"
	"github.com/teemow/workspacekit/internal/provider"
	"github.com/teemow/workspacekit/internal/provider/providertest"
)

// pagedFiles serves n files through files.list in pages of at most
// pageSize, whatever the caller asks for.
func pagedFiles(fake *providertest.Fake, n, pageSize int) {
	fake.Handle("GET", "drive/files", func(req *provider.Request) (any, error) {
		offset := 0
		if tok := req.Params.Get("pageToken"); tok != "" {
			offset, _ = strconv.Atoi(tok)
		}
		size, _ := strconv.Atoi(req.Params.Get("pageSize"))
		end := min(offset+min(size, pageSize), n)
		list := &drive.FileList{}
		for i := offset; i < end; i++ {
			list.Files = append(list.Files, &drive.File{Id: fmt.Sprintf("f%02d", i), Name: fmt.Sprintf("file %d", i)})
		}
		if end < n {
			list.NextPageToken = strconv.Itoa(end)
		}
		return list, nil
	})
}

func TestExecutePaginatesToLimit(t *testing.T) {
	fake := providertest.New()
	pagedFiles(fake, 100, 10)

	items, err := New(fake, WithEnv(fixedEnv)).Query().Limit(25).Execute(context.Background())
	require.NoError(t, err)
	require.Len(t, items, 25)
	assert.Equal(t, "f00", items[0].ID)
	assert.Equal(t, "f24", items[24].ID)

	calls := fake.Calls("GET", "drive/files")
	require.Len(t, calls, 3)
	assert.Equal(t, "25", calls[0].Params.Get("pageSize"))
	assert.Equal(t, "15", calls[1].Params.Get("pageSize"))
	assert.Equal(t, "5", calls[2].Params.Get("pageSize"))
	assert.Equal(t, "trashed = false", calls[0].Params.Get("q"))
}

func TestExecuteStopsAtLastPage(t *testing.T) {
	fake := providertest.New()
	pagedFiles(fake, 12, 10)

	n, err := New(fake).Query().Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 12, n)

	calls := fake.Calls("GET", "drive/files")
	require.Len(t, calls, 2)
	assert.Equal(t, listIDFields, calls[0].Params.Get("fields"))
}

func TestQueryOptions(t *testing.T) {
	fake := providertest.New()
	pagedFiles(fake, 1, 10)
	svc := New(fake, WithEnv(fixedEnv))

	ok, err := svc.Query().InFolder("f1").NameContains("plan").OrderBy("modifiedTime desc").Exists(context.Background())
	require.NoError(t, err)
	assert.True(t, ok)

	calls := fake.AllCalls()
	require.Len(t, calls, 1)
	assert.Equal(t, "'f1' in parents and name contains 'plan' and trashed = false", calls[0].Params.Get("q"))
	assert.Equal(t, "modifiedTime desc", calls[0].Params.Get("orderBy"))
	assert.Equal(t, "1", calls[0].Params.Get("pageSize"))

	_, err = svc.Query().OrderBy("size").Execute(context.Background())
	assert.ErrorIs(t, err, apierror.ErrInvalidQuery)

	_, err = svc.Query().Limit(MaxLimit + 1).Execute(context.Background())
	assert.ErrorIs(t, err, apierror.ErrInvalidQuery)
	assert.Len(t, fake.AllCalls(), 1)
}

func TestFirstEmpty(t *testing.T) {
	fake := providertest.New()
	pagedFiles(fake, 0, 10)

	item, err := New(fake).Query().NameIs("nothing").First(context.Background())
	require.NoError(t, err)
	assert.Nil(t, item)
}

func TestGetItem(t *testing.T) {
	fake := providertest.New()
	fake.Handle("GET", "drive/files/*", func(req *provider.Request) (any, error) {
		if providertest.Last(req) != "doc1" {
			return nil, providertest.NotFound()
		}
		return &drive.File{
			Id:           "doc1",
			Name:         "Plan",
			MimeType:     "application/vnd.google-apps.document",
			Parents:      []string{"root"},
			ModifiedTime: "2024-03-01T10:00:00Z",
			Owners:       []*drive.User{{DisplayName: "Ann", EmailAddress: "ann@example.com"}},
		}, nil
	})
	svc := New(fake)

	item, err := svc.GetItem(context.Background(), "doc1")
	require.NoError(t, err)
	assert.Equal(t, "Plan", item.Name)
	assert.True(t, item.IsGoogleDoc())
	assert.False(t, item.IsFolder())
	assert.Equal(t, "root", item.Parent())
	assert.Equal(t, 2024, item.ModifiedTime.Year())
	assert.Equal(t, []User{{DisplayName: "Ann", EmailAddress: "ann@example.com"}}, item.Owners)

	res, err := svc.Async().BatchGetItems(context.Background(), []string{"doc1", "gone", "doc1"}).Await(context.Background())
	require.NoError(t, err)
	assert.Len(t, res.Values(), 2)
	require.Len(t, res.Failed(), 1)
	assert.Equal(t, 1, res.Failed()[0].Index)
	assert.ErrorIs(t, res.Failed()[0].Err, apierror.ErrNotFound)
	assert.ErrorIs(t, res.Err(), apierror.ErrPartialBatchFailure)
}

func TestDownload(t *testing.T) {
	fake := providertest.New()
	fake.Handle("GET", "drive/files/*", func(req *provider.Request) (any, error) {
		id := providertest.Last(req)
		if req.Params.Get("alt") == "media" {
			return []byte("raw bytes of " + id), nil
		}
		mime := "application/pdf"
		switch id {
		case "doc":
			mime = "application/vnd.google-apps.document"
		case "dir":
			mime = FolderMimeType
		}
		return &drive.File{Id: id, MimeType: mime}, nil
	})
	fake.Handle("GET", "drive/files/*/export", func(req *provider.Request) (any, error) {
		return []byte("exported as " + req.Params.Get("mimeType")), nil
	})
	svc := New(fake)

	var buf bytes.Buffer
	mime, err := svc.Download(context.Background(), "pdf", &buf)
	require.NoError(t, err)
	assert.Equal(t, "application/pdf", mime)
	assert.Equal(t, "raw bytes of pdf", buf.String())

	buf.Reset()
	mime, err = svc.Download(context.Background(), "doc", &buf)
	require.NoError(t, err)
	assert.Equal(t, ExportMimeType("application/vnd.google-apps.document"), mime)
	assert.Equal(t, "exported as "+mime, buf.String())

	_, err = svc.Download(context.Background(), "dir", io.Discard)
	assert.ErrorIs(t, err, apierror.ErrInvalidQuery)
}

func TestUpload(t *testing.T) {
	fake := providertest.New()
	fake.Handle("POST", "drive/files", func(req *provider.Request) (any, error) {
		data, err := io.ReadAll(req.Media)
		require.NoError(t, err)
		var meta drive.File
		require.NoError(t, providertest.DecodeBody(req, &meta))
		return &drive.File{Id: "new", Name: meta.Name, Parents: meta.Parents, MimeType: req.MediaType, Size: int64(len(data))}, nil
	})
	svc := New(fake)

	item, err := svc.Upload(context.Background(), UploadOptions{Name: "notes.txt", ParentID: "f1", MimeType: "text/plain"}, strings.NewReader("hello"))
	require.NoError(t, err)
	assert.Equal(t, "new", item.ID)
	assert.Equal(t, []string{"f1"}, item.Parents)
	assert.Equal(t, int64(5), item.Size)

	_, err = svc.Upload(context.Background(), UploadOptions{Name: " "}, strings.NewReader("x"))
	assert.ErrorIs(t, err, apierror.ErrInvalidQuery)
	_, err = svc.Upload(context.Background(), UploadOptions{Name: "x"}, nil)
	assert.ErrorIs(t, err, apierror.ErrInvalidQuery)
}

func TestMoveRemovesAllParents(t *testing.T) {
	fake := providertest.New()
	fake.Handle("GET", "drive/files/*", func(req *provider.Request) (any, error) {
		return &drive.File{Id: "x", Parents: []string{"p1", "p2"}}, nil
	})
	fake.Handle("PATCH", "drive/files/*", func(req *provider.Request) (any, error) {
		return &drive.File{Id: "x", Parents: []string{req.Params.Get("addParents")}}, nil
	})

	item, err := New(fake).Move(context.Background(), "x", "dest")
	require.NoError(t, err)
	assert.Equal(t, []string{"dest"}, item.Parents)

	patches := fake.Calls("PATCH", "drive/files/*")
	require.Len(t, patches, 1)
	assert.Equal(t, "dest", patches[0].Params.Get("addParents"))
	assert.Equal(t, "p1,p2", patches[0].Params.Get("removeParents"))
}

func TestDeleteTrashesOrRemoves(t *testing.T) {
	fake := providertest.New()
	fake.Handle("", "drive/files/*", func(req *provider.Request) (any, error) {
		return &drive.File{Id: providertest.Last(req)}, nil
	})
	svc := New(fake)

	require.NoError(t, svc.Delete(context.Background(), "a", false))
	require.NoError(t, svc.Delete(context.Background(), "a", true))

	calls := fake.AllCalls()
	require.Len(t, calls, 2)
	assert.Equal(t, "PATCH", calls[0].Method)
	var body map[string]any
	require.NoError(t, providertest.DecodeBody(calls[0], &body))
	assert.Equal(t, true, body["trashed"])
	assert.Equal(t, "DELETE", calls[1].Method)
}

func TestUpdateSendsFalseValues(t *testing.T) {
	fake := providertest.New()
	fake.Handle("PATCH", "drive/files/*", func(req *provider.Request) (any, error) {
		return &drive.File{Id: "a", Name: "renamed"}, nil
	})

	_, err := New(fake).Update(context.Background(), &Item{ID: "a", Name: "renamed"})
	require.NoError(t, err)

	var body map[string]any
	require.NoError(t, providertest.DecodeBody(fake.AllCalls()[0], &body))
	assert.Equal(t, false, body["starred"])
	assert.Equal(t, "", body["description"])
}

func TestShareValidation(t *testing.T) {
	fake := providertest.New()
	fake.Handle("POST", "drive/files/*/permissions", func(req *provider.Request) (any, error) {
		var p drive.Permission
		require.NoError(t, providertest.DecodeBody(req, &p))
		p.Id = "perm1"
		return &p, nil
	})
	svc := New(fake)

	p, err := svc.Share(context.Background(), "a", ShareOptions{Type: GranteeUser, Role: RoleWriter, EmailAddress: "bob@example.com", SendNotification: true, Message: "hi"})
	require.NoError(t, err)
	assert.Equal(t, &Permission{ID: "perm1", ItemID: "a", Role: RoleWriter, Type: GranteeUser, EmailAddress: "bob@example.com"}, p)
	assert.Equal(t, "hi", fake.AllCalls()[0].Params.Get("emailMessage"))

	for _, opts := range []ShareOptions{
		{Type: "robot", Role: RoleReader},
		{Type: GranteeUser, Role: "admin", EmailAddress: "bob@example.com"},
		{Type: GranteeUser, Role: RoleReader},
		{Type: GranteeDomain, Role: RoleReader},
	} {
		_, err := svc.Share(context.Background(), "a", opts)
		assert.ErrorIs(t, err, apierror.ErrInvalidQuery)
	}
	assert.Len(t, fake.AllCalls(), 1)
}

// tree is an in-memory folder hierarchy answering the folder lookups of
// FolderByPath and CreateFolderPath.
type tree struct {
	mu      sync.Mutex
	folders map[string]*drive.File
	next    int
}

func newTree(t *testing.T, fake *providertest.Fake) *tree {
	tr := &tree{folders: map[string]*drive.File{}}
	fake.Handle("GET", "drive/files", func(req *provider.Request) (any, error) {
		tr.mu.Lock()
		defer tr.mu.Unlock()
		q := req.Params.Get("q")
		list := &drive.FileList{}
		for _, f := range tr.folders {
			if strings.Contains(q, "name = '"+f.Name+"'") && strings.Contains(q, "'"+f.Parents[0]+"' in parents") {
				list.Files = append(list.Files, f)
			}
		}
		return list, nil
	})
	fake.Handle("POST", "drive/files", func(req *provider.Request) (any, error) {
		var f drive.File
		require.NoError(t, providertest.DecodeBody(req, &f))
		tr.mu.Lock()
		defer tr.mu.Unlock()
		tr.next++
		f.Id = "dir" + strconv.Itoa(tr.next)
		tr.folders[f.Id] = &f
		return &f, nil
	})
	return tr
}

func TestCreateFolderPathIsIdempotent(t *testing.T) {
	fake := providertest.New()
	tr := newTree(t, fake)
	svc := New(fake)

	first, err := svc.CreateFolderPath(context.Background(), "/Projects/2024/")
	require.NoError(t, err)
	assert.Equal(t, "2024", first.Name)
	assert.True(t, first.IsFolder())
	assert.Len(t, tr.folders, 2)

	again, err := svc.CreateFolderPath(context.Background(), "Projects/2024")
	require.NoError(t, err)
	assert.Equal(t, first.ID, again.ID)
	assert.Len(t, tr.folders, 2)
	assert.Len(t, fake.Calls("POST", "drive/files"), 2)

	found, err := svc.FolderByPath(context.Background(), "Projects/2024")
	require.NoError(t, err)
	assert.Equal(t, first.ID, found.ID)

	_, err = svc.FolderByPath(context.Background(), "Projects/2023")
	assert.ErrorIs(t, err, apierror.ErrNotFound)
	assert.Contains(t, err.Error(), "Projects/2023")
}

func TestBatchCreateFolders(t *testing.T) {
	fake := providertest.New()
	newTree(t, fake)

	res, err := New(fake).BatchCreateFolders(context.Background(), []string{"a", " ", "c"}, "root")
	require.NoError(t, err)
	assert.Equal(t, 2, res.Successful())
	require.Len(t, res.Failed(), 1)
	assert.Equal(t, " ", res.Failed()[0].ID)
	assert.ErrorIs(t, res.Failed()[0].Err, apierror.ErrInvalidQuery)
}

func TestParentFolder(t *testing.T) {
	fake := providertest.New()
	fake.Handle("GET", "drive/files/*", func(req *provider.Request) (any, error) {
		switch providertest.Last(req) {
		case "child":
			return &drive.File{Id: "child", Parents: []string{"dir"}}, nil
		case "dir":
			return &drive.File{Id: "dir", MimeType: FolderMimeType}, nil
		}
		return nil, providertest.NotFound()
	})
	svc := New(fake)

	parent, err := svc.ParentFolder(context.Background(), "child")
	require.NoError(t, err)
	assert.Equal(t, "dir", parent.ID)

	parent, err = svc.ParentFolder(context.Background(), "dir")
	require.NoError(t, err)
	assert.Nil(t, parent)
}
