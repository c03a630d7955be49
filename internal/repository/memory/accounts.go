package memory

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/javajoker/botscript-backend/internal/models"
	"github.com/javajoker/botscript-backend/internal/repository"
)

type userRepo struct{ s *Store }

func (r userRepo) Create(_ context.Context, user *models.User) error {
	return r.s.update(func(d *dataset) error {
		email := normalizeEmail(user.Email)
		if _, exists := d.usersByEmail[email]; exists {
			return repository.ErrDuplicate
		}
		if user.ID == uuid.Nil {
			user.ID = uuid.New()
		}
		now := d.stamp()
		user.Email = email
		user.CreatedAt, user.UpdatedAt = now, now
		d.users[user.ID] = *user
		d.usersByEmail[email] = user.ID
		return nil
	})
}

func (r userRepo) GetByID(_ context.Context, id uuid.UUID) (*models.User, error) {
	var out models.User
	err := r.s.view(func(d *dataset) error {
		user, ok := d.users[id]
		if !ok {
			return repository.ErrNotFound
		}
		out = user
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (r userRepo) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	var id uuid.UUID
	err := r.s.view(func(d *dataset) error {
		found, ok := d.usersByEmail[normalizeEmail(email)]
		if !ok {
			return repository.ErrNotFound
		}
		id = found
		return nil
	})
	if err != nil {
		return nil, err
	}
	return r.GetByID(ctx, id)
}

func (r userRepo) TouchLastLogin(_ context.Context, id uuid.UUID, at time.Time) error {
	return r.s.update(func(d *dataset) error {
		user, ok := d.users[id]
		if !ok {
			return repository.ErrNotFound
		}
		user.LastLoginAt = &at
		user.UpdatedAt = d.stamp()
		d.users[id] = user
		return nil
	})
}

type profileRepo struct{ s *Store }

func (r profileRepo) Create(_ context.Context, profile *models.Profile) error {
	return r.s.update(func(d *dataset) error {
		if _, exists := d.profiles[profile.ID]; exists {
			return repository.ErrDuplicate
		}
		for _, existing := range d.profiles {
			if existing.Username == profile.Username {
				return repository.ErrDuplicate
			}
		}
		if profile.ID == uuid.Nil {
			profile.ID = uuid.New()
		}
		now := d.stamp()
		profile.CreatedAt, profile.UpdatedAt = now, now
		d.profiles[profile.ID] = *profile
		return nil
	})
}

func (r profileRepo) GetByID(_ context.Context, id uuid.UUID) (*models.Profile, error) {
	var out models.Profile
	err := r.s.view(func(d *dataset) error {
		profile, ok := d.profiles[id]
		if !ok {
			return repository.ErrNotFound
		}
		out = profile
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (r profileRepo) Update(_ context.Context, profile *models.Profile) error {
	return r.s.update(func(d *dataset) error {
		stored, ok := d.profiles[profile.ID]
		if !ok {
			return repository.ErrNotFound
		}
		for id, existing := range d.profiles {
			if id != profile.ID && existing.Username == profile.Username {
				return repository.ErrDuplicate
			}
		}
		stored.Username = profile.Username
		stored.FullName = profile.FullName
		stored.AvatarURL = profile.AvatarURL
		stored.Bio = profile.Bio
		stored.UpdatedAt = d.stamp()
		d.profiles[profile.ID] = stored
		*profile = stored
		return nil
	})
}

func (r profileRepo) UsernameTaken(_ context.Context, username string) (bool, error) {
	var taken bool
	err := r.s.view(func(d *dataset) error {
		for _, profile := range d.profiles {
			if profile.Username == username {
				taken = true
				return nil
			}
		}
		return nil
	})
	return taken, err
}

type auditRepo struct{ s *Store }

func (r auditRepo) Create(_ context.Context, entry *models.AuditLog) error {
	return r.s.update(func(d *dataset) error {
		if entry.ID == uuid.Nil {
			entry.ID = uuid.New()
		}
		now := d.stamp()
		entry.CreatedAt, entry.UpdatedAt = now, now
		d.auditLogs = append(d.auditLogs, *entry)
		return nil
	})
}

// AuditEntries returns a copy of the recorded audit entries, oldest first.
func (s *Store) AuditEntries() []models.AuditLog {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]models.AuditLog(nil), s.data.auditLogs...)
}
