// Package testing holds helpers shared by the server's tests: an emulator
// backed Firestore client and in-memory fakes of every external collaborator.
package testing

import (
	"context"
	"os"
	"testing"

	"cloud.google.com/go/firestore"
)

// EmulatorEnv is set by `gcloud beta emulators firestore start`.
const EmulatorEnv = "FIRESTORE_EMULATOR_HOST"

// NewFirestoreTestClient creates a new client for testing. It requires a local Firestore to be running
// on the user's machine, and skips the test otherwise.
func NewFirestoreTestClient(t *testing.T) *firestore.Client {
	t.Helper()
	if os.Getenv(EmulatorEnv) == "" {
		t.Skipf("%s not set; skipping Firestore emulator test", EmulatorEnv)
	}
	client, err := firestore.NewClient(context.Background(), "test")
	if err != nil {
		t.Fatalf("firestore.NewClient err: %v", err)
	}
	t.Cleanup(func() { client.Close() })
	return client
}
