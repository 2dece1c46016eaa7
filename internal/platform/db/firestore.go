package db

import (
	"context"
	"errors"
	"fmt"

	"cloud.google.com/go/firestore"
	firebase "firebase.google.com/go/v4"
	"google.golang.org/api/option"
)

// Firestore wraps the Firebase app and its Firestore client so callers can
// close the client without tracking both handles.
type Firestore struct {
	App    *firebase.App
	Client *firestore.Client
}

func ConnectFirestore(ctx context.Context, projectID string, credentialsJSON string) (*Firestore, error) {
	if projectID == "" {
		return nil, errors.New("firestore project id is required")
	}

	var opts []option.ClientOption
	if credentialsJSON != "" {
		opts = append(opts, option.WithCredentialsJSON([]byte(credentialsJSON)))
	}

	app, err := firebase.NewApp(ctx, &firebase.Config{ProjectID: projectID}, opts...)
	if err != nil {
		return nil, fmt.Errorf("init firebase app: %w", err)
	}

	client, err := app.Firestore(ctx)
	if err != nil {
		return nil, fmt.Errorf("open firestore client: %w", err)
	}
	return &Firestore{App: app, Client: client}, nil
}

func (f *Firestore) Close() error {
	if f == nil || f.Client == nil {
		return nil
	}
	return f.Client.Close()
}
