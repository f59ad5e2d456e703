// Copyright 2026 The fspotfs Authors
// SPDX-License-Identifier: Apache-2.0

package catalog

import (
	"context"
	"errors"
	"testing"
)

func TestLinkTarget(t *testing.T) {
	cat := newTestCatalog(t, scenarioFixture, false)
	ctx := context.Background()

	target, err := cat.LinkTarget(ctx, "Beach", "img1.jpg")
	if err != nil {
		t.Fatalf("LinkTarget: %v", err)
	}
	if target != "/pics/img1.jpg" {
		t.Fatalf("target = %q, want /pics/img1.jpg", target)
	}
}

func TestLinkTargetAtRoot(t *testing.T) {
	cat := newTestCatalog(t, scenarioFixture, false)
	ctx := context.Background()

	// solo.jpg has no tag assignment; the root resolves it by name.
	target, err := cat.LinkTarget(ctx, "", "solo.jpg")
	if err != nil {
		t.Fatalf("LinkTarget: %v", err)
	}
	if target != "/pics/solo.jpg" {
		t.Fatalf("target = %q, want /pics/solo.jpg", target)
	}
}

func TestLinkTargetPercentDecodes(t *testing.T) {
	cat := newTestCatalog(t, `
		INSERT INTO tags VALUES (1, 'Vacation', 0);
		INSERT INTO photos VALUES (10, 'file:///my%20pics/summer%202009', 'beach%20day.jpg');
		INSERT INTO photo_tags VALUES (10, 1);
	`, false)
	ctx := context.Background()

	target, err := cat.LinkTarget(ctx, "Vacation", "beach%20day.jpg")
	if err != nil {
		t.Fatalf("LinkTarget: %v", err)
	}
	if target != "/my pics/summer 2009/beach day.jpg" {
		t.Fatalf("target = %q", target)
	}
}

func TestLinkTargetNotFound(t *testing.T) {
	cat := newTestCatalog(t, scenarioFixture, false)
	ctx := context.Background()

	// img1 is assigned to Beach, not Vacation.
	if _, err := cat.LinkTarget(ctx, "Vacation", "img1.jpg"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("want ErrNotFound, got %v", err)
	}
	if _, err := cat.LinkTarget(ctx, "Nowhere", "img1.jpg"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("want ErrNotFound for unknown tag, got %v", err)
	}
}

func TestLinkTargetJoin(t *testing.T) {
	tests := []struct {
		baseURI  string
		filename string
		want     string
	}{
		{"file:///pics", "img1.jpg", "/pics/img1.jpg"},
		{"file:///pics/", "img1.jpg", "/pics/img1.jpg"},
		{"/pics", "img1.jpg", "/pics/img1.jpg"},
		{"file:///a%2Bb", "c.jpg", "/a+b/c.jpg"},
	}
	for _, tt := range tests {
		if got := linkTarget(tt.baseURI, tt.filename); got != tt.want {
			t.Errorf("linkTarget(%q, %q) = %q, want %q", tt.baseURI, tt.filename, got, tt.want)
		}
	}
}
