// Package firestore stores accounts and operators in Cloud Firestore, in
// the users/{uid} layout the web console already writes.
package firestore

import (
	"context"
	"encoding/base64"
	"fmt"

	"cloud.google.com/go/firestore"
	firebase "firebase.google.com/go/v4"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

type Config struct {
	ProjectID         string
	CredentialsFile   string
	CredentialsBase64 string
}

// Connect builds a Firestore client through the Firebase Admin SDK.
// Base64 credentials win over a credentials file; with neither, Application
// Default Credentials are used.
func Connect(ctx context.Context, cfg Config) (*firestore.Client, error) {
	var opts []option.ClientOption
	switch {
	case cfg.CredentialsBase64 != "":
		decoded, err := base64.StdEncoding.DecodeString(cfg.CredentialsBase64)
		if err != nil {
			return nil, fmt.Errorf("decode firebase credentials: %w", err)
		}
		opts = append(opts, option.WithCredentialsJSON(decoded))
	case cfg.CredentialsFile != "":
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}

	app, err := firebase.NewApp(ctx, &firebase.Config{ProjectID: cfg.ProjectID}, opts...)
	if err != nil {
		return nil, fmt.Errorf("firebase app: %w", err)
	}
	client, err := app.Firestore(ctx)
	if err != nil {
		return nil, fmt.Errorf("firestore client: %w", err)
	}
	return client, nil
}

// Ping reads a sentinel document; NotFound still proves connectivity.
func Ping(ctx context.Context, client *firestore.Client) error {
	_, err := client.Collection(accountsCollection).Doc("_health").Get(ctx)
	if err != nil && status.Code(err) != codes.NotFound {
		return err
	}
	return nil
}
