package service

import "context"

type teacherKey struct{}

// WithTeacher returns a context carrying the acting teacher's ID
func WithTeacher(ctx context.Context, teacherID int64) context.Context {
	return context.WithValue(ctx, teacherKey{}, teacherID)
}

// TeacherFromContext returns the acting teacher's ID, if any
func TeacherFromContext(ctx context.Context) (int64, bool) {
	id, ok := ctx.Value(teacherKey{}).(int64)
	return id, ok && id > 0
}

// currentTeacher fails with ErrUnauthorized when no teacher is signed in
func currentTeacher(ctx context.Context) (int64, error) {
	id, ok := TeacherFromContext(ctx)
	if !ok {
		return 0, ErrUnauthorized
	}
	return id, nil
}
