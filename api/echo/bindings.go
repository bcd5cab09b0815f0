package echoapi

import "github.com/kindredkids/compass/core"

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

func (r *loginRequest) Validate() error {
	r.Email = core.CleanString(r.Email, true)
	return core.Validate.Struct(r)
}

type signupRequest struct {
	FullName string `json:"full_name" validate:"required"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
	Role     string `json:"role" validate:"required,oneof=admin teacher"`
	ChurchID string `json:"church_id"`

	// church details, admin signup only
	BranchName string `json:"branch_name"`
	Location   string `json:"location"`
	Region     string `json:"region"`
	District   string `json:"district"`
	Area       string `json:"area"`
}

func (r *signupRequest) Validate() error {
	r.FullName = core.CleanString(r.FullName)
	r.Email = core.CleanString(r.Email, true)
	r.Role = core.CleanString(r.Role, true)
	if err := core.Validate.Struct(r); err != nil {
		return err
	}
	if r.Role == "admin" && (r.BranchName == "" || r.Location == "") {
		return core.NewValidationError(nil,
			core.FieldError{Field: "branch_name", Error: "branch_name and location are required for admin signup"},
		)
	}
	if r.Role == "teacher" && r.ChurchID == "" {
		return core.NewValidationError(nil,
			core.FieldError{Field: "church_id", Error: "church_id is required for teacher signup"},
		)
	}
	return nil
}

type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int    `json:"expires_in"`
	TokenType    string `json:"token_type"`
	UserID       string `json:"user_id"`
	Role         string `json:"role"`
	ChurchID     string `json:"church_id"`
}

type changePasswordRequest struct {
	CurrentPassword string `json:"current_password" validate:"required"`
	NewPassword     string `json:"new_password" validate:"required,min=6"`
}

func (r *changePasswordRequest) Validate() error {
	return core.Validate.Struct(r)
}

// updateMeRequest is a sparse patch; nil means "leave unchanged".
type updateMeRequest struct {
	FullName    *string `json:"full_name"`
	Phone       *string `json:"phone"`
	DateOfBirth *string `json:"date_of_birth" validate:"omitempty,datetime=2006-01-02"`
}

func (r *updateMeRequest) Validate() error {
	if r.FullName != nil {
		*r.FullName = core.CleanString(*r.FullName)
	}
	return core.Validate.Struct(r)
}

func (r *updateMeRequest) changes() map[string]interface{} {
	body := make(map[string]interface{})
	if r.FullName != nil {
		body["full_name"] = *r.FullName
	}
	if r.Phone != nil {
		body["phone"] = *r.Phone
	}
	if r.DateOfBirth != nil {
		body["date_of_birth"] = *r.DateOfBirth
	}
	return body
}

type notificationRequest struct {
	Title      string `json:"title" validate:"required"`
	Message    string `json:"message" validate:"required"`
	TargetRole string `json:"target_role" validate:"omitempty,oneof=all admin teacher"`
	Category   string `json:"category"`
}

func (r *notificationRequest) Validate() error {
	r.Title = core.CleanString(r.Title)
	if r.TargetRole == "" {
		r.TargetRole = "all"
	}
	if r.Category == "" {
		r.Category = "general"
	}
	return core.Validate.Struct(r)
}

type teacherCreateRequest struct {
	FullName    string `json:"full_name" validate:"required"`
	Email       string `json:"email" validate:"required,email"`
	Phone       string `json:"phone"`
	DateOfBirth string `json:"date_of_birth" validate:"omitempty,datetime=2006-01-02"`
	Password    string `json:"password" validate:"required,min=6"`
}

func (r *teacherCreateRequest) Validate() error {
	r.FullName = core.CleanString(r.FullName)
	r.Email = core.CleanString(r.Email, true)
	return core.Validate.Struct(r)
}

type classRequest struct {
	Name        string `json:"name" validate:"required"`
	AgeGroup    string `json:"age_group" validate:"required"`
	Description string `json:"description"`
}

func (r *classRequest) Validate() error {
	r.Name = core.CleanString(r.Name)
	return core.Validate.Struct(r)
}

type assignTeacherRequest struct {
	TeacherID string `json:"teacher_id" validate:"required"`
	ClassID   string `json:"class_id" validate:"required"`
}

func (r *assignTeacherRequest) Validate() error {
	return core.Validate.Struct(r)
}

type studentRequest struct {
	ClassID         string `json:"class_id" validate:"required"`
	FirstName       string `json:"first_name" validate:"required"`
	LastName        string `json:"last_name" validate:"required"`
	DateOfBirth     string `json:"date_of_birth" validate:"required,datetime=2006-01-02"`
	GuardianName    string `json:"guardian_name" validate:"required"`
	GuardianContact string `json:"guardian_contact" validate:"required"`
	Allergies       string `json:"allergies"`
	Notes           string `json:"notes"`
	Gender          string `json:"gender"`
}

func (r *studentRequest) Validate() error {
	r.FirstName = core.CleanString(r.FirstName)
	r.LastName = core.CleanString(r.LastName)
	return core.Validate.Struct(r)
}

// studentPatchRequest is a sparse patch; nil means "leave unchanged".
type studentPatchRequest struct {
	ClassID         *string `json:"class_id"`
	FirstName       *string `json:"first_name"`
	LastName        *string `json:"last_name"`
	DateOfBirth     *string `json:"date_of_birth" validate:"omitempty,datetime=2006-01-02"`
	GuardianName    *string `json:"guardian_name"`
	GuardianContact *string `json:"guardian_contact"`
	Allergies       *string `json:"allergies"`
	Notes           *string `json:"notes"`
	Gender          *string `json:"gender"`
}

func (r *studentPatchRequest) Validate() error {
	return core.Validate.Struct(r)
}

func (r *studentPatchRequest) changes() map[string]interface{} {
	body := make(map[string]interface{})
	set := func(key string, val *string) {
		if val != nil {
			body[key] = *val
		}
	}
	set("class_id", r.ClassID)
	set("first_name", r.FirstName)
	set("last_name", r.LastName)
	set("date_of_birth", r.DateOfBirth)
	set("guardian_name", r.GuardianName)
	set("guardian_contact", r.GuardianContact)
	set("allergies", r.Allergies)
	set("notes", r.Notes)
	set("gender", r.Gender)
	return body
}

type churchPatchRequest struct {
	Name       *string `json:"name"`
	BranchName *string `json:"branch_name"`
	Location   *string `json:"location"`
	Region     *string `json:"region"`
	District   *string `json:"district"`
	Area       *string `json:"area"`
}

func (r *churchPatchRequest) Validate() error {
	return core.Validate.Struct(r)
}

func (r *churchPatchRequest) changes() map[string]interface{} {
	body := make(map[string]interface{})
	set := func(key string, val *string) {
		if val != nil {
			body[key] = *val
		}
	}
	set("name", r.Name)
	set("branch_name", r.BranchName)
	set("location", r.Location)
	set("region", r.Region)
	set("district", r.District)
	set("area", r.Area)
	return body
}

type attendanceEntry struct {
	StudentID string `json:"student_id" validate:"required"`
	Present   bool   `json:"present"`
	Notes     string `json:"notes,omitempty"`
}

type attendanceRequest struct {
	ClassID     string            `json:"class_id" validate:"required"`
	SessionDate string            `json:"session_date" validate:"required,datetime=2006-01-02"`
	Students    []attendanceEntry `json:"students" validate:"required,min=1,dive"`
}

func (r *attendanceRequest) Validate() error {
	return core.Validate.Struct(r)
}

type scoreEntry struct {
	StudentID string  `json:"student_id" validate:"required"`
	Score     float64 `json:"score"`
	MaxScore  float64 `json:"max_score" validate:"required,gtefield=Score"`
	Notes     string  `json:"notes,omitempty"`
}

type performanceRequest struct {
	ClassID string       `json:"class_id" validate:"required"`
	Title   string       `json:"title" validate:"required"`
	TakenOn string       `json:"taken_on" validate:"required,datetime=2006-01-02"`
	Scores  []scoreEntry `json:"scores" validate:"required,min=1,dive"`
}

func (r *performanceRequest) Validate() error {
	r.Title = core.CleanString(r.Title)
	return core.Validate.Struct(r)
}

type studentNoteRequest struct {
	StudentID string `json:"student_id" validate:"required"`
	Note      string `json:"note" validate:"required,min=3"`
}

func (r *studentNoteRequest) Validate() error {
	r.Note = core.CleanString(r.Note)
	return core.Validate.Struct(r)
}
