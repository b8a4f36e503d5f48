package repository

import (
	"fmt"
	"testing"
	"time"

	"github.com/rehab-eng/nova-max-ws/internal/models"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
)

func setupSettingRepositoryTest(t *testing.T) (*GormSettingRepository, *gorm.DB) {
	t.Helper()
	dsn := fmt.Sprintf("file:setting_repo_test_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite failed: %v", err)
	}
	if err := db.AutoMigrate(&models.Setting{}); err != nil {
		t.Fatalf("auto migrate failed: %v", err)
	}
	return NewSettingRepository(db), db
}

func TestSettingRepositoryGetByKeyMissing(t *testing.T) {
	repo, _ := setupSettingRepositoryTest(t)

	setting, err := repo.GetByKey("nova.store_id")
	if err != nil {
		t.Fatalf("get missing key failed: %v", err)
	}
	if setting != nil {
		t.Fatalf("missing key = %+v, want nil", setting)
	}
}

func TestSettingRepositoryUpsertCreatesThenUpdates(t *testing.T) {
	repo, _ := setupSettingRepositoryTest(t)

	created, err := repo.Upsert("nova.store_id", models.StringSetting("store-1"))
	if err != nil {
		t.Fatalf("upsert create failed: %v", err)
	}
	if created.StringValue() != "store-1" {
		t.Fatalf("created value = %q, want %q", created.StringValue(), "store-1")
	}

	updated, err := repo.Upsert("nova.store_id", models.StringSetting("store-2"))
	if err != nil {
		t.Fatalf("upsert update failed: %v", err)
	}
	if updated.StringValue() != "store-2" {
		t.Fatalf("updated value = %q, want %q", updated.StringValue(), "store-2")
	}

	loaded, err := repo.GetByKey("nova.store_id")
	if err != nil {
		t.Fatalf("get after upsert failed: %v", err)
	}
	if loaded == nil || loaded.StringValue() != "store-2" {
		t.Fatalf("loaded = %+v, want value store-2", loaded)
	}
}

func TestSettingRepositoryStringHelpers(t *testing.T) {
	repo, _ := setupSettingRepositoryTest(t)

	empty, err := repo.GetString("nova.admin_code")
	if err != nil {
		t.Fatalf("get string missing failed: %v", err)
	}
	if empty != "" {
		t.Fatalf("missing string = %q, want empty", empty)
	}

	if err := repo.SetString("nova.admin_code", "AC-900"); err != nil {
		t.Fatalf("set string failed: %v", err)
	}
	got, err := repo.GetString("nova.admin_code")
	if err != nil {
		t.Fatalf("get string failed: %v", err)
	}
	if got != "AC-900" {
		t.Fatalf("string value = %q, want %q", got, "AC-900")
	}
}

func TestSettingRepositoryDelete(t *testing.T) {
	repo, _ := setupSettingRepositoryTest(t)

	if err := repo.SetString("nova.store_code", "SC-1"); err != nil {
		t.Fatalf("set string failed: %v", err)
	}
	if err := repo.Delete("nova.store_code"); err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	setting, err := repo.GetByKey("nova.store_code")
	if err != nil {
		t.Fatalf("get after delete failed: %v", err)
	}
	if setting != nil {
		t.Fatalf("setting after delete = %+v, want nil", setting)
	}

	if err := repo.Delete("nova.store_code"); err != nil {
		t.Fatalf("delete missing key failed: %v", err)
	}
}
