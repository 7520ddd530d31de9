package services

import (
	"strings"

	"github.com/justsurfingit/talent-dashboard/internal/models"
)

// minTermLength drops search terms so short they would match everything.
const minTermLength = 2

// MatchJobs filters jobs to those matching every term of query against
// title, company or location. An empty query matches all.
func MatchJobs(jobs []models.Job, query string) []models.Job {
	terms := searchTerms(query)
	if len(terms) == 0 {
		return jobs
	}
	var out []models.Job
	for _, job := range jobs {
		if matchesAll(terms, job.Title, job.Company, job.Location) {
			out = append(out, job)
		}
	}
	return out
}

// MatchCourses filters courses by title, trainer or description.
func MatchCourses(courses []models.Course, query string) []models.Course {
	terms := searchTerms(query)
	if len(terms) == 0 {
		return courses
	}
	var out []models.Course
	for _, course := range courses {
		if matchesAll(terms, course.Title, course.Trainer, course.Description) {
			out = append(out, course)
		}
	}
	return out
}

func searchTerms(query string) []string {
	var terms []string
	for _, t := range strings.Fields(strings.ToLower(query)) {
		if len(t) < minTermLength {
			continue
		}
		terms = append(terms, t)
	}
	return terms
}

func matchesAll(terms []string, fields ...string) bool {
	for _, term := range terms {
		found := false
		for _, f := range fields {
			if strings.Contains(strings.ToLower(f), term) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}
