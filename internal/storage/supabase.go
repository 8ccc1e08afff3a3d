package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	supabase "github.com/supabase-community/storage-go"
)

// SupabaseStorage stores media in a public Supabase Storage bucket.
type SupabaseStorage struct {
	client     *supabase.Client
	bucket     string
	publicBase string
}

func NewSupabaseStorage(projectURL, apiKey, bucket string) (*SupabaseStorage, error) {
	projectURL = strings.TrimRight(strings.TrimSpace(projectURL), "/")
	if projectURL == "" || apiKey == "" || bucket == "" {
		return nil, errors.New("missing required Supabase env: SUPABASE_URL, SUPABASE_KEY, SUPABASE_BUCKET")
	}
	return &SupabaseStorage{
		client:     supabase.NewClient(projectURL+"/storage/v1", apiKey, nil),
		bucket:     bucket,
		publicBase: fmt.Sprintf("%s/storage/v1/object/public/%s", projectURL, bucket),
	}, nil
}

func (s *SupabaseStorage) Store(_ context.Context, key string, body io.Reader, _ int64, contentType string) (string, error) {
	upsert := false
	opts := supabase.FileOptions{
		ContentType: &contentType,
		Upsert:      &upsert,
	}
	if _, err := s.client.UploadFile(s.bucket, key, body, opts); err != nil {
		return "", err
	}
	return s.publicBase + "/" + key, nil
}

func (s *SupabaseStorage) Delete(_ context.Context, url string) error {
	key, err := keyFromURL(s.publicBase, url)
	if err != nil {
		return err
	}
	_, err = s.client.RemoveFile(s.bucket, []string{key})
	return err
}
