package views

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/justsurfingit/talent-dashboard/internal/models"
	"github.com/justsurfingit/talent-dashboard/internal/services"
	"github.com/justsurfingit/talent-dashboard/internal/syncer"
)

// Collection names. Several roles may carry a collection under the same
// name with a different fetch.
const (
	Jobs         = "jobs"
	Courses      = "courses"
	MyCourses    = "my-courses"
	Applications = "applications"
	Applicants   = "applicants"
	Users        = "users"
)

// Affected lists the collections a mutation of each kind may change.
var (
	JobMutations       = []string{Jobs}
	CourseMutations    = []string{Courses, MyCourses}
	ApplicantMutations = []string{Applicants, Applications}
	UserMutations      = []string{Users}
)

// Services are the backend services the role views read from.
type Services struct {
	Jobs       *services.JobService
	Courses    *services.CourseService
	Applicants *services.ApplicantService
	Users      *services.UserService
}

// Options configure ForRole.
type Options struct {
	Deps
	// Interval returns the poll interval for a collection name; nil or a
	// non-positive result uses the synchronizer default.
	Interval func(name string) time.Duration
}

func (o Options) interval(name string) time.Duration {
	if o.Interval == nil {
		return 0
	}
	return o.Interval(name)
}

// ForRole builds the view for user's role:
//
//	EMPLOYEE: job board and course catalog (with images), own applications
//	TRAINER:  own courses (with images), applicants to them (with CVs)
//	ADMIN:    user accounts (with avatars), job board, course catalog
func ForRole(user models.User, svc Services, opts Options) (*View, error) {
	var cols []Collection
	switch user.Role {
	case models.RoleEmployee:
		cols = []Collection{
			jobBoard(svc, opts),
			courseCatalog(svc, opts),
			NewCollection(Def[models.Applicant]{
				Name:     Applications,
				Fetch:    svc.Applicants.Mine,
				Key:      models.Applicant.Key,
				Interval: opts.interval(Applications),
			}, opts.Deps),
		}
	case models.RoleTrainer:
		cols = []Collection{
			NewCollection(Def[models.Course]{
				Name:     MyCourses,
				Fetch:    bind(svc.Courses.ListByTrainer, user.Username),
				Key:      models.Course.Key,
				Interval: opts.interval(MyCourses),
				Asset:    svc.Courses.Image,
				HasAsset: func(c models.Course) bool { return c.HasImage },
			}, opts.Deps),
			NewCollection(Def[models.Applicant]{
				Name:     Applicants,
				Fetch:    bind(svc.Applicants.ForTrainer, user.Username),
				Key:      models.Applicant.Key,
				Interval: opts.interval(Applicants),
				Asset:    svc.Applicants.CV,
				HasAsset: func(a models.Applicant) bool { return a.HasCV },
			}, opts.Deps),
		}
	case models.RoleAdmin:
		cols = []Collection{
			NewCollection(Def[models.User]{
				Name:     Users,
				Fetch:    svc.Users.List,
				Key:      models.User.Key,
				Interval: opts.interval(Users),
				Asset:    svc.Users.Avatar,
			}, opts.Deps),
			jobBoard(svc, opts),
			courseCatalog(svc, opts),
		}
	default:
		return nil, fmt.Errorf("no view for role %q", user.Role)
	}

	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}
	return New(user, logger, cols...), nil
}

func jobBoard(svc Services, opts Options) Collection {
	return NewCollection(Def[models.Job]{
		Name:     Jobs,
		Fetch:    svc.Jobs.List,
		Key:      models.Job.Key,
		Interval: opts.interval(Jobs),
		Asset:    svc.Jobs.Image,
		HasAsset: func(j models.Job) bool { return j.HasImage },
	}, opts.Deps)
}

func courseCatalog(svc Services, opts Options) Collection {
	return NewCollection(Def[models.Course]{
		Name:     Courses,
		Fetch:    svc.Courses.List,
		Key:      models.Course.Key,
		Interval: opts.interval(Courses),
		Asset:    svc.Courses.Image,
		HasAsset: func(c models.Course) bool { return c.HasImage },
	}, opts.Deps)
}

// bind fixes the trailing argument of a per-user list call.
func bind[T any](fn func(context.Context, string) ([]T, error), arg string) syncer.FetchFunc[T] {
	return func(ctx context.Context) ([]T, error) {
		return fn(ctx, arg)
	}
}
