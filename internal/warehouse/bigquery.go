package warehouse

import (
	"context"
	"errors"

	"cloud.google.com/go/bigquery"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
)

// ErrNoCredentials is returned when no service account key is configured.
var ErrNoCredentials = errors.New("Not found BigQuery service account key")

// BigQuery runs telemetry queries on Google BigQuery.
type BigQuery struct {
	client *bigquery.Client
}

// NewBigQuery creates a client authenticated with the service account key
// at credentialsFile. The project is detected from the key.
func NewBigQuery(ctx context.Context, credentialsFile string) (*BigQuery, error) {
	if credentialsFile == "" {
		return nil, ErrNoCredentials
	}
	client, err := bigquery.NewClient(ctx, bigquery.DetectProjectID, option.WithCredentialsFile(credentialsFile))
	if err != nil {
		return nil, err
	}
	return &BigQuery{client: client}, nil
}

// Query implements Warehouse.
func (b *BigQuery) Query(ctx context.Context, query string) ([]Row, error) {
	it, err := b.client.Query(query).Read(ctx)
	if err != nil {
		return nil, describe(err)
	}
	var rows []Row
	for {
		var rec map[string]bigquery.Value
		err := it.Next(&rec)
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, describe(err)
		}
		row := make(Row, len(rec))
		for k, v := range rec {
			row[k] = v
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// Close releases the client.
func (b *BigQuery) Close() error { return b.client.Close() }

// describe surfaces the first API error message when there is one.
func describe(err error) error {
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		if len(apiErr.Errors) > 0 && apiErr.Errors[0].Message != "" {
			return &apiError{msg: apiErr.Errors[0].Message, err: err}
		}
		if apiErr.Message != "" {
			return &apiError{msg: apiErr.Message, err: err}
		}
	}
	return err
}

type apiError struct {
	msg string
	err error
}

func (e *apiError) Error() string { return e.msg }

func (e *apiError) Unwrap() error { return e.err }
