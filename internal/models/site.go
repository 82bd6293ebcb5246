package models

import (
	"time"
)

type Site struct {
	ID        int64     `json:"id"`
	Domain    string    `json:"domain"`
	Token     string    `json:"token"`
	CreatedAt time.Time `json:"created_at"`
}

type CreateSiteInput struct {
	Domain string `json:"domain" binding:"required"`
}
