package model

import "time"

// ConfigKeyDefaultStore is the store_config key holding the id of the
// ESL platform store all goods and labels belong to.
const ConfigKeyDefaultStore = "esl_default_store_id"

// StoreConfig is a cached key/value pair resolved from the platform.
// Written lazily on first successful resolution, upserted afterward.
type StoreConfig struct {
	Key         string    `json:"key"`
	Value       string    `json:"value"`
	Description string    `json:"description,omitempty"`
	UpdatedAt   time.Time `json:"updated_at"`
}
