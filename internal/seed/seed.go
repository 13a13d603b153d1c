// Package seed loads the initial hostel staff and student accounts from a file.
//
// Accounts are declared explicitly in YAML or TOML rather than compiled in, so a
// fresh deployment has no default credentials unless an operator provides them.
package seed

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"golang.org/x/crypto/bcrypt"
	"gopkg.in/yaml.v3"

	"gatepass/internal/model"
)

// MinPasswordLength applies to seeded and changed passwords alike.
const MinPasswordLength = 6

// Format is a seed file encoding.
type Format string

const (
	FormatYAML Format = "yaml"
	FormatTOML Format = "toml"
)

// FormatFromPath picks the encoding from the file extension.
func FormatFromPath(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML, nil
	case ".toml":
		return FormatTOML, nil
	}
	return "", fmt.Errorf("seed file %s: unsupported extension, use .yaml, .yml or .toml", path)
}

// File is the decoded seed document.
type File struct {
	Users []User `yaml:"users" toml:"users"`
}

// User is one seeded account. Passwords are plain text in the file and hashed on load.
type User struct {
	ID       string `yaml:"id" toml:"id"`
	Name     string `yaml:"name" toml:"name"`
	Role     string `yaml:"role" toml:"role"`
	Password string `yaml:"password" toml:"password"`
	Email    string `yaml:"email" toml:"email"`
	Phone    string `yaml:"phone" toml:"phone"`
	Active   *bool  `yaml:"active" toml:"active"`

	Room          string `yaml:"room" toml:"room"`
	Course        string `yaml:"course" toml:"course"`
	Year          string `yaml:"year" toml:"year"`
	GuardianName  string `yaml:"guardian_name" toml:"guardian_name"`
	GuardianPhone string `yaml:"guardian_phone" toml:"guardian_phone"`

	Designation      string `yaml:"designation" toml:"designation"`
	Department       string `yaml:"department" toml:"department"`
	Shift            string `yaml:"shift" toml:"shift"`
	EmergencyContact string `yaml:"emergency_contact" toml:"emergency_contact"`
}

// LoadFile reads and validates a seed file.
func LoadFile(path string) (*File, error) {
	format, err := FormatFromPath(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read seed file: %w", err)
	}
	f, err := Parse(data, format)
	if err != nil {
		return nil, fmt.Errorf("seed file %s: %w", path, err)
	}
	return f, nil
}

// Parse decodes and validates a seed document.
func Parse(data []byte, format Format) (*File, error) {
	var f File
	switch format {
	case FormatYAML:
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&f); err != nil {
			return nil, fmt.Errorf("decode yaml: %w", err)
		}
	case FormatTOML:
		md, err := toml.Decode(string(data), &f)
		if err != nil {
			return nil, fmt.Errorf("decode toml: %w", err)
		}
		if undecoded := md.Undecoded(); len(undecoded) > 0 {
			return nil, fmt.Errorf("decode toml: unknown keys %v", undecoded)
		}
	default:
		return nil, fmt.Errorf("unsupported seed format %q", format)
	}
	if err := f.Validate(); err != nil {
		return nil, err
	}
	return &f, nil
}

// Validate checks every entry and rejects duplicate ids or emails.
func (f *File) Validate() error {
	ids := make(map[string]bool, len(f.Users))
	emails := make(map[string]bool, len(f.Users))
	for i, u := range f.Users {
		id := model.NormalizeUserID(u.ID)
		if id == "" {
			return fmt.Errorf("user %d: id is required", i)
		}
		if ids[id] {
			return fmt.Errorf("user %s: duplicate id", id)
		}
		ids[id] = true

		if strings.TrimSpace(u.Name) == "" {
			return fmt.Errorf("user %s: name is required", id)
		}
		if _, err := model.ParseRole(u.Role); err != nil {
			return fmt.Errorf("user %s: %w", id, err)
		}
		if len(u.Password) < MinPasswordLength {
			return fmt.Errorf("user %s: password must be at least %d characters", id, MinPasswordLength)
		}
		if email := strings.ToLower(strings.TrimSpace(u.Email)); email != "" {
			if emails[email] {
				return fmt.Errorf("user %s: duplicate email %s", id, email)
			}
			emails[email] = true
		}
	}
	return nil
}

// Accounts converts the entries to users with bcrypt password hashes.
// cost <= 0 uses bcrypt.DefaultCost.
func (f *File) Accounts(cost int) ([]model.User, error) {
	if cost <= 0 {
		cost = bcrypt.DefaultCost
	}
	users := make([]model.User, 0, len(f.Users))
	for _, u := range f.Users {
		hash, err := bcrypt.GenerateFromPassword([]byte(u.Password), cost)
		if err != nil {
			return nil, fmt.Errorf("hash password for %s: %w", u.ID, err)
		}
		role, _ := model.ParseRole(u.Role)
		active := true
		if u.Active != nil {
			active = *u.Active
		}
		var email *string
		if e := strings.ToLower(strings.TrimSpace(u.Email)); e != "" {
			email = &e
		}
		users = append(users, model.User{
			ID:               model.NormalizeUserID(u.ID),
			Name:             strings.TrimSpace(u.Name),
			Role:             role,
			Email:            email,
			Phone:            u.Phone,
			PasswordHash:     string(hash),
			Active:           active,
			Room:             u.Room,
			Course:           u.Course,
			Year:             u.Year,
			GuardianName:     u.GuardianName,
			GuardianPhone:    u.GuardianPhone,
			Designation:      u.Designation,
			Department:       u.Department,
			Shift:            u.Shift,
			EmergencyContact: u.EmergencyContact,
		})
	}
	return users, nil
}
