package service

import (
	"context"
	"testing"

	"plansly/backend/internal/apperrors"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestUpdateUserPreferences(t *testing.T) {
	userRepo := newFakeUserRepo()
	svc := NewUserService(userRepo)
	ctx := context.Background()
	userID := userRepo.addUser()

	updated, err := svc.UpdateUser(ctx, userID, map[string]interface{}{
		"name":          "Robin",
		"light_theme":   true,
		"currency":      "EUR",
		"hosting_count": 99, // not allow-listed, silently ignored
	})
	if err != nil {
		t.Fatalf("UpdateUser: %v", err)
	}
	if updated.Name != "Robin" || !updated.LightTheme || updated.Currency != "EUR" {
		t.Errorf("updated = %+v, want applied preferences", updated)
	}
	if updated.HostingCount != 0 {
		t.Error("counters must not be settable through preference updates")
	}

	stored, err := svc.GetUser(ctx, userID)
	if err != nil {
		t.Fatalf("GetUser: %v", err)
	}
	if stored.Name != "Robin" {
		t.Error("update should persist")
	}

	_, err = svc.UpdateUser(ctx, userID, map[string]interface{}{"light_theme": "maybe"})
	wantCode(t, err, apperrors.CodeValidation)

	_, err = svc.GetUser(ctx, primitive.NewObjectID())
	wantCode(t, err, apperrors.CodeUserNotFound)
}
