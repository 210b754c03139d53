package profile

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"

	"github.com/cmlabs-hris/hris-attendance-kiosk/internal/domain/attendance"
	"github.com/cmlabs-hris/hris-attendance-kiosk/internal/domain/camera"
	"github.com/cmlabs-hris/hris-attendance-kiosk/internal/domain/face"
	"github.com/cmlabs-hris/hris-attendance-kiosk/internal/domain/profile"
	"github.com/cmlabs-hris/hris-attendance-kiosk/internal/pkg/imaging"
)

const (
	DefaultReferenceMaxSide  = 1024
	DefaultReferenceMaxBytes = 512 << 10
)

// ImageFetcher downloads a reference image.
type ImageFetcher interface {
	FetchImage(ctx context.Context, url string) ([]byte, error)
}

type Config struct {
	ReferenceMaxSide  int
	ReferenceMaxBytes int
}

// ProfileServiceImpl resolves who is at the kiosk and which photo their face
// is enrolled from.
type ProfileServiceImpl struct {
	sessions *SessionManager
	profiles profile.ProfileFetcher
	images   ImageFetcher
	urls     *URLNormalizer
	cfg      Config

	mu     sync.Mutex
	cached map[string]profile.Profile
}

var _ profile.Resolver = (*ProfileServiceImpl)(nil)

func NewProfileService(sessions *SessionManager, profiles profile.ProfileFetcher, images ImageFetcher, urls *URLNormalizer, cfg Config) *ProfileServiceImpl {
	if cfg.ReferenceMaxSide <= 0 {
		cfg.ReferenceMaxSide = DefaultReferenceMaxSide
	}
	if cfg.ReferenceMaxBytes <= 0 {
		cfg.ReferenceMaxBytes = DefaultReferenceMaxBytes
	}
	return &ProfileServiceImpl{
		sessions: sessions,
		profiles: profiles,
		images:   images,
		urls:     urls,
		cfg:      cfg,
		cached:   make(map[string]profile.Profile),
	}
}

// Identity returns the current employee. Display fields missing from the
// session are filled from the backend profile when it can be fetched.
func (s *ProfileServiceImpl) Identity(ctx context.Context) (profile.Identity, error) {
	id, err := s.sessions.Identity(ctx)
	if err != nil {
		return id, err
	}
	if id.Name != "" {
		return id, nil
	}

	p, err := s.profile(ctx, id.EmployeeID)
	if err != nil {
		slog.Debug("Profile lookup for identity failed", "employee_id", id.EmployeeID, "error", err)
		return id, nil
	}
	id.Name = p.FullName
	if id.Department == "" {
		id.Department = p.Department
	}
	if id.TeamID == "" {
		id.TeamID = p.TeamID
	}
	return id, nil
}

// FaceReference returns the normalized reference image URL for employeeID,
// preferring the session's and falling back to the backend profile.
// NO_PROFILE_PHOTO means there is none to enroll from.
func (s *ProfileServiceImpl) FaceReference(ctx context.Context, employeeID string) (string, error) {
	if sess, ok := s.sessions.Session(); ok && sess.EmployeeID == employeeID && sess.FaceReferenceURL != "" {
		return s.urls.Normalize(sess.FaceReferenceURL), nil
	}

	p, err := s.profile(ctx, employeeID)
	if err != nil {
		if errors.Is(err, profile.ErrProfileNotFound) {
			return "", attendance.ErrNoProfilePhoto.Wrap(err)
		}
		return "", err
	}

	ref := p.FaceReference()
	if ref == "" {
		return "", attendance.ErrNoProfilePhoto.Wrap(profile.ErrNoProfilePhoto)
	}
	return s.urls.Normalize(ref), nil
}

// PrepareReference turns a reference URL or data URL into a bounded JPEG
// data URL ready for enrollment.
func (s *ProfileServiceImpl) PrepareReference(ctx context.Context, ref string) (face.Reference, error) {
	var (
		data []byte
		err  error
	)
	if strings.HasPrefix(ref, "data:") {
		_, data, err = camera.ParseDataURL(ref)
		if err != nil {
			return "", attendance.ErrFaceRecognitionUnavailable.Wrap(err).WithMessage("Your profile photo could not be read")
		}
	} else {
		data, err = s.images.FetchImage(ctx, ref)
		if err != nil {
			slog.Warn("Reference photo download failed", "error", err)
			return "", err
		}
	}

	jpeg, err := imaging.PrepareReference(data, s.cfg.ReferenceMaxSide, s.cfg.ReferenceMaxBytes)
	if err != nil {
		slog.Warn("Reference photo unusable", "error", err)
		return "", attendance.ErrFaceRecognitionUnavailable.Wrap(err).WithMessage("Your profile photo could not be read")
	}
	return face.Reference(camera.EncodeDataURL(imaging.MIMEJPEG, jpeg)), nil
}

// Forget drops cached profiles, e.g. after a session change.
func (s *ProfileServiceImpl) Forget() {
	s.mu.Lock()
	s.cached = make(map[string]profile.Profile)
	s.mu.Unlock()
}

func (s *ProfileServiceImpl) profile(ctx context.Context, employeeID string) (profile.Profile, error) {
	s.mu.Lock()
	p, ok := s.cached[employeeID]
	s.mu.Unlock()
	if ok {
		return p, nil
	}

	p, err := s.profiles.GetProfile(ctx, employeeID)
	if err != nil {
		return profile.Profile{}, err
	}

	s.mu.Lock()
	s.cached[employeeID] = p
	s.mu.Unlock()
	return p, nil
}
