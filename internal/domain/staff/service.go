package staff

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
)

var ErrNotFound = errors.New("staff member not found")

type Service struct {
	staff Repository
}

func NewService(staff Repository) *Service {
	return &Service{staff: staff}
}

func (s *Service) Create(ctx context.Context, m *Staff) error {
	if m.FirstName == "" || m.LastName == "" {
		return fmt.Errorf("first_name and last_name are required")
	}
	if !ValidRole(m.Role) {
		return fmt.Errorf("invalid role %q", m.Role)
	}
	m.Active = true
	return s.staff.Create(ctx, m)
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Staff, error) {
	return s.staff.GetByID(ctx, id)
}

func (s *Service) Update(ctx context.Context, m *Staff) error {
	if !ValidRole(m.Role) {
		return fmt.Errorf("invalid role %q", m.Role)
	}
	if _, err := s.staff.GetByID(ctx, m.ID); err != nil {
		return err
	}
	return s.staff.Update(ctx, m)
}

func (s *Service) List(ctx context.Context, role, query string, limit, offset int) ([]*Staff, int, error) {
	return s.staff.List(ctx, role, query, limit, offset)
}

// DoctorName returns the display name of an active doctor. It is the
// lookup the appointment service uses to snapshot the physician's name
// at booking time.
func (s *Service) DoctorName(ctx context.Context, id uuid.UUID) (string, error) {
	m, err := s.staff.GetByID(ctx, id)
	if err != nil {
		return "", err
	}
	if m.Role != RoleDoctor {
		return "", fmt.Errorf("staff member %s is not a doctor", id)
	}
	return m.FullName(), nil
}
