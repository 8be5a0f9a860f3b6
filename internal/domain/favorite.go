package domain

import (
	"fmt"
	"strings"
)

type FavoriteKind string

const (
	FavoriteKindHotel  FavoriteKind = "hotel"
	FavoriteKindRoom   FavoriteKind = "room"
	FavoriteKindFlight FavoriteKind = "flight"
)

var FavoriteKinds = []FavoriteKind{FavoriteKindHotel, FavoriteKindRoom, FavoriteKindFlight}

// ParseFavoriteKind accepts a bare kind ("hotel") or a backend model class
// name ("App\\Models\\Hotel").
func ParseFavoriteKind(raw string) (FavoriteKind, error) {
	name := raw
	if i := strings.LastIndexAny(name, `\/.`); i >= 0 {
		name = name[i+1:]
	}
	switch FavoriteKind(strings.ToLower(strings.TrimSpace(name))) {
	case FavoriteKindHotel:
		return FavoriteKindHotel, nil
	case FavoriteKindRoom:
		return FavoriteKindRoom, nil
	case FavoriteKindFlight:
		return FavoriteKindFlight, nil
	}
	return "", fmt.Errorf("unknown favorite kind %q", raw)
}

// FavoriteRef is one favorite as embedded in the remote profile.
type FavoriteRef struct {
	Kind FavoriteKind
	ID   int64
}

type User struct {
	ID        int64
	Name      string
	Email     string
	Favorites []FavoriteRef
}
