package publish

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/hashicorp/consul/api"
	"github.com/mwantia/metacat/data"
)

// DefaultPrefix is the Consul KV folder catalogs are announced under.
const DefaultPrefix = "metacat/catalogs"

var ErrAnnouncementMissing = errors.New("publish: catalog has not been announced")

type AnnouncerOptions struct {
	// Address of the Consul agent (default: "127.0.0.1:8500")
	Address    string
	Token      string
	Datacenter string
	Prefix     string
}

// Announcement tells consumers where the latest catalog of a tree lives.
type Announcement struct {
	RunID       string    `json:"run_id"`
	Root        string    `json:"root"`
	FileType    string    `json:"file_type"`
	Bucket      string    `json:"bucket"`
	Object      string    `json:"object"`
	Size        int64     `json:"size"`
	Files       int       `json:"files"`
	Coordinates int       `json:"coordinates"`
	Variables   int       `json:"variables"`
	Published   time.Time `json:"published"`
}

// NewAnnouncement describes the catalog of run uploaded to bucket/object.
func NewAnnouncement(run *data.IngestRun, bucket, object string, size int64) *Announcement {
	return &Announcement{
		RunID:       run.ID,
		Root:        run.Root,
		FileType:    run.FileType,
		Bucket:      bucket,
		Object:      object,
		Size:        size,
		Files:       run.Files,
		Coordinates: run.Coordinates,
		Variables:   run.Variables,
		Published:   time.Now().UTC(),
	}
}

// Announcer writes announcements into the Consul KV store.
type Announcer struct {
	kv     *api.KV
	prefix string
}

func NewAnnouncer(opts AnnouncerOptions) (*Announcer, error) {
	if opts.Address == "" {
		opts.Address = "127.0.0.1:8500"
	}
	if opts.Prefix == "" {
		opts.Prefix = DefaultPrefix
	}

	clientConfig := api.DefaultConfig()
	clientConfig.Address = opts.Address
	if opts.Token != "" {
		clientConfig.Token = opts.Token
	}
	if opts.Datacenter != "" {
		clientConfig.Datacenter = opts.Datacenter
	}

	client, err := api.NewClient(clientConfig)
	if err != nil {
		return nil, err
	}

	return &Announcer{
		kv:     client.KV(),
		prefix: strings.Trim(opts.Prefix, "/"),
	}, nil
}

func (*Announcer) Name() string {
	return "consul"
}

// Key returns the KV key the announcement for name is stored at.
func (a *Announcer) Key(name string) string {
	return a.prefix + "/" + strings.Trim(name, "/")
}

// Announce stores announcement under name, replacing an earlier one.
func (a *Announcer) Announce(ctx context.Context, name string, announcement *Announcement) error {
	value, err := json.Marshal(announcement)
	if err != nil {
		return err
	}

	pair := &api.KVPair{Key: a.Key(name), Value: value}
	if _, err := a.kv.Put(pair, (&api.WriteOptions{}).WithContext(ctx)); err != nil {
		return fmt.Errorf("failed to announce '%s': %w", pair.Key, err)
	}
	return nil
}

// Lookup returns the announcement stored under name.
func (a *Announcer) Lookup(ctx context.Context, name string) (*Announcement, error) {
	key := a.Key(name)
	pair, _, err := a.kv.Get(key, (&api.QueryOptions{}).WithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("failed to read '%s': %w", key, err)
	}
	if pair == nil {
		return nil, fmt.Errorf("%w: %s", ErrAnnouncementMissing, key)
	}

	var announcement Announcement
	if err := json.Unmarshal(pair.Value, &announcement); err != nil {
		return nil, fmt.Errorf("invalid announcement at '%s': %w", key, err)
	}
	return &announcement, nil
}
