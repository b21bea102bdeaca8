// Copyright (c) 2025 NEZ Project.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"net/http"
	"testing"

	"github.com/nezproject/edenqueue/models"
	"github.com/nezproject/edenqueue/testutil"
)

func TestAddAsset(t *testing.T) {
	conn := testutil.SetupTestDB(t)
	h := NewAssetHandler(conn, testutil.TestConfig())
	mux := http.NewServeMux()
	mux.HandleFunc("POST /assets", h.AddAsset)

	w := testutil.MakeRequest(t, mux, "POST", "/assets", "", modKey, models.AddAssetRequest{AssetRef: "vault://shard-7"})
	testutil.AssertStatus(t, w, http.StatusOK)

	var resp models.AddAssetResponse
	testutil.ParseJSON(t, w, &resp)
	if !resp.Inserted {
		t.Error("Expected inserted=true for a new asset")
	}

	// Duplicate refs are a quiet no-op.
	w = testutil.MakeRequest(t, mux, "POST", "/assets", "", modKey, models.AddAssetRequest{AssetRef: "vault://shard-7"})
	testutil.AssertStatus(t, w, http.StatusOK)
	testutil.ParseJSON(t, w, &resp)
	if resp.Inserted {
		t.Error("Expected inserted=false for a duplicate asset")
	}

	var count int
	if err := conn.QueryRow(`SELECT COUNT(*) FROM rare_assets`).Scan(&count); err != nil {
		t.Fatal(err)
	}
	if count != 1 {
		t.Errorf("Expected 1 asset, got %d", count)
	}
}

func TestAddAssetValidation(t *testing.T) {
	conn := testutil.SetupTestDB(t)
	h := NewAssetHandler(conn, testutil.TestConfig())
	mux := http.NewServeMux()
	mux.HandleFunc("POST /assets", h.AddAsset)

	w := testutil.MakeRequest(t, mux, "POST", "/assets", "", modKey, models.AddAssetRequest{AssetRef: "   "})
	testutil.AssertStatus(t, w, http.StatusBadRequest)

	w = testutil.MakeRequest(t, mux, "POST", "/assets", "", "", models.AddAssetRequest{AssetRef: "vault://shard-7"})
	testutil.AssertStatus(t, w, http.StatusUnauthorized)
}
