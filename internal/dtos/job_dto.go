package dtos

type JobCreationRequest struct {
	Title       string `json:"title" binding:"required"`
	Company     string `json:"company" binding:"required"`
	Description string `json:"description" binding:"required"`

	// Optional Fields
	Location string `json:"location"`
	Salary   string `json:"salary"`
	Status   string `json:"status"` // Defaults to "OPEN" on the backend if empty
}

type CourseCreationRequest struct {
	Title       string  `json:"title" binding:"required"`
	Description string  `json:"description" binding:"required"`
	Price       float64 `json:"price" binding:"gte=0"`
	Duration    string  `json:"duration"`
}

type ApplicantStatusRequest struct {
	Status string `json:"status" binding:"required,oneof=PENDING ACCEPTED REJECTED"`
}

type ProfileUpdateRequest struct {
	Email     string `json:"email" binding:"omitempty,email"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
}
