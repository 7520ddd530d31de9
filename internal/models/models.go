package models

import (
	"strconv"
	"time"
)

// Roles issued by the backend at login.
const (
	RoleEmployee = "EMPLOYEE"
	RoleTrainer  = "TRAINER"
	RoleAdmin    = "ADMIN"
)

// Applicant workflow states.
const (
	ApplicantPending  = "PENDING"
	ApplicantAccepted = "ACCEPTED"
	ApplicantRejected = "REJECTED"
)

type User struct {
	ID        int64  `json:"id"`
	Username  string `json:"username"`
	Email     string `json:"email"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Role      string `json:"role"`
}

func (u User) Key() string { return strconv.FormatInt(u.ID, 10) }

type Job struct {
	JobID       int64     `json:"jobId"`
	Title       string    `json:"title"`
	Company     string    `json:"company"`
	Location    string    `json:"location"`
	Description string    `json:"description"`
	Salary      string    `json:"salary,omitempty"`
	Status      string    `json:"status,omitempty"`
	PostedBy    string    `json:"postedBy,omitempty"`
	HasImage    bool      `json:"hasImage"`
	CreatedAt   time.Time `json:"createdAt"`
}

func (j Job) Key() string { return strconv.FormatInt(j.JobID, 10) }

type Course struct {
	CourseID    int64     `json:"courseId"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Trainer     string    `json:"trainer"`
	Price       float64   `json:"price"`
	Duration    string    `json:"duration,omitempty"`
	HasImage    bool      `json:"hasImage"`
	CreatedAt   time.Time `json:"createdAt"`
}

func (c Course) Key() string { return strconv.FormatInt(c.CourseID, 10) }

// Applicant is one application to a job or a course. Exactly one of JobID
// and CourseID is set.
type Applicant struct {
	ID       int64  `json:"id"`
	JobID    int64  `json:"jobId,omitempty"`
	CourseID int64  `json:"courseId,omitempty"`
	Name     string `json:"name"`
	Email    string `json:"email"`
	Status   string `json:"status"`
	HasCV    bool   `json:"hasCv"`
}

func (a Applicant) Key() string { return strconv.FormatInt(a.ID, 10) }

// SyncEvent is one journal row: a committed snapshot or a failed poll.
type SyncEvent struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	CreatedAt  time.Time `json:"created_at"`
	Collection string    `gorm:"index;not null" json:"collection"`
	EventType  string    `json:"event_type"`
	Records    int       `json:"records"`
	Details    string    `gorm:"type:text" json:"details"`
}

const (
	SyncCommitted = "COMMITTED"
	SyncFailed    = "FAILED"
)
