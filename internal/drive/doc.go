// Package drive wraps the Google Drive API: item metadata, uploads and
// downloads, folders, permissions and a query builder compiling to the Drive
// query language.
//
// Folders and files share the Item type; IsFolder tells them apart.
// Searches exclude the trash unless Trashed is part of the query:
//
//	svc := drive.New(client)
//	reports, err := svc.Query().
//		InFolder(folderID).
//		MimeType("application/pdf").
//		ModifiedLastDays(30).
//		OrderBy("modifiedTime desc").
//		Execute(ctx)
//
// Paths are resolved from the root folder one segment at a time.
// CreateFolderPath behaves like mkdir -p and may be called repeatedly.
package drive
