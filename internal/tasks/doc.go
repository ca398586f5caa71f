// Package tasks wraps the Google Tasks API: task lists, tasks and subtasks,
// and a query builder compiling to tasks.list parameters.
//
// Due dates are calendar dates (civil.Date). The provider stores them as
// midnight UTC and ignores the time of day, so they are written and read
// back by date only and never shift with the configured time zone.
//
// # Example Usage
//
//	svc := tasks.New(client, tasks.WithEnv(query.NewEnv(loc)))
//	late, err := svc.Query().Overdue().Execute(ctx)
//
//	due := civil.Date{Year: 2024, Month: time.December, Day: 31}
//	task, err := svc.CreateTask(ctx, tasks.DefaultListID, tasks.TaskInput{
//		Title: "File taxes",
//		Due:   &due,
//	})
//
// Moving a task into another list drops its parent. The default list
// cannot be deleted.
package tasks
