// create_user adds accounts directly in the database, either one from flags
// or a batch from a yaml seed file:
//
//	users:
//	  - name: Ana
//	    email: ana@example.com
//	    password: secret1
//	    role: admin
package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"

	"contactos/models"
	"contactos/pkg/config"
	"contactos/pkg/logger"
	"contactos/pkg/store"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gopkg.in/yaml.v3"
	"gorm.io/gorm"
)

type seedUser struct {
	Name     string `yaml:"name"`
	Email    string `yaml:"email"`
	Password string `yaml:"password"`
	Role     string `yaml:"role"`
}

type seedFile struct {
	Users []seedUser `yaml:"users"`
}

func main() {
	name := flag.String("name", "", "display name")
	email := flag.String("email", "", "login email")
	password := flag.String("password", "", "plaintext password (min 6 chars)")
	role := flag.String("role", models.RoleUser, "user or admin")
	file := flag.String("file", "", "yaml file with a users list; overrides the single-user flags")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "load config:", err)
		os.Exit(1)
	}
	if _, err := logger.Init(logger.Config{Level: cfg.Log.Level, Format: "console"}); err != nil {
		fmt.Fprintln(os.Stderr, "init logger:", err)
		os.Exit(1)
	}
	log := zap.L().Named("create_user")

	var users []seedUser
	if *file != "" {
		users, err = loadSeedFile(*file)
		if err != nil {
			log.Fatal("failed to read seed file", zap.String("file", *file), zap.Error(err))
		}
	} else {
		if *email == "" || *password == "" {
			fmt.Println("usage: go run ./cmd/create_user -email <email> -password <password> [-name <name>] [-role user|admin]")
			fmt.Println("   or: go run ./cmd/create_user -file users.yaml")
			os.Exit(2)
		}
		users = []seedUser{{Name: *name, Email: *email, Password: *password, Role: *role}}
	}

	if strings.TrimSpace(cfg.DB.DSN) == "" {
		log.Fatal("DB_DSN not set in environment")
	}
	db, err := store.Open(cfg.DB.DSN)
	if err != nil {
		log.Fatal("failed to open db", zap.Error(err))
	}
	created, err := createUsers(db, users, cfg.BcryptCost)
	if err != nil {
		log.Fatal("create users failed", zap.Error(err))
	}
	fmt.Printf("created %d of %d user(s)\n", created, len(users))
}

func loadSeedFile(path string) ([]seedUser, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var f seedFile
	if err := yaml.Unmarshal(b, &f); err != nil {
		return nil, err
	}
	if len(f.Users) == 0 {
		return nil, errors.New("no users in seed file")
	}
	return f.Users, nil
}

// createUsers inserts the users that do not exist yet and returns how many were created.
func createUsers(db *gorm.DB, users []seedUser, cost int) (int, error) {
	log := zap.L().Named("create_user")
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	created := 0
	for _, u := range users {
		email := strings.ToLower(strings.TrimSpace(u.Email))
		if email == "" {
			return created, errors.New("user without email")
		}
		if len(u.Password) < 6 {
			return created, fmt.Errorf("password for %s too short (min 6)", email)
		}
		roleName := u.Role
		if roleName == "" {
			roleName = models.RoleUser
		}
		if roleName != models.RoleUser && roleName != models.RoleAdmin {
			return created, fmt.Errorf("invalid role %q for %s", roleName, email)
		}
		name := strings.TrimSpace(u.Name)
		if name == "" {
			name = email
		}

		var existing models.User
		if err := db.Where("email = ?", email).First(&existing).Error; err == nil {
			log.Info("user already exists", zap.String("email", email), zap.Uint("id", existing.ID))
			continue
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return created, err
		}

		// ensure role exists
		var role models.Role
		if err := db.Where(models.Role{Name: roleName}).FirstOrCreate(&role).Error; err != nil {
			return created, fmt.Errorf("ensure role %s: %w", roleName, err)
		}
		hpw, err := bcrypt.GenerateFromPassword([]byte(u.Password), cost)
		if err != nil {
			return created, fmt.Errorf("bcrypt failed: %w", err)
		}
		rid := role.ID
		user := models.User{Name: name, Email: email, HashedPassword: hpw, RoleID: &rid}
		if err := db.Omit("Role").Create(&user).Error; err != nil {
			return created, fmt.Errorf("create %s: %w", email, err)
		}
		log.Info("created user", zap.String("email", email), zap.String("role", roleName), zap.Uint("id", user.ID))
		created++
	}
	return created, nil
}
