package test

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

const DefaultLocalPort = 8000

const TABLE_NAME = "ChefbotFavorites"

type LocalDynamoServer struct {
	Process *os.Process
	Port    int
	Dir     string
}

// localSettings reads DYNAMODB_LOCAL_DIR and DYNAMODB_LOCAL_PORT, falling
// back to the repository's dynamodb/ directory and port 8000.
func localSettings() (string, int) {
	dir := os.Getenv("DYNAMODB_LOCAL_DIR")
	if dir == "" {
		dir = filepath.Join(os.Getenv("PWD"), "..", "..", "..", "dynamodb")
	}
	port := DefaultLocalPort
	if value, err := strconv.Atoi(os.Getenv("DYNAMODB_LOCAL_PORT")); err == nil && value > 0 {
		port = value
	}
	return dir, port
}

// StartLocalServer runs DynamoDB Local until the test ends. The test is
// skipped when the jar or java is unavailable.
func StartLocalServer(t *testing.T) *LocalDynamoServer {
	t.Helper()
	dir, port := localSettings()
	jar := filepath.Join(dir, "DynamoDBLocal.jar")
	if _, err := os.Stat(jar); err != nil {
		t.Skipf("DynamoDB Local not found at %s", jar)
	}
	if _, err := exec.LookPath("java"); err != nil {
		t.Skip("java is required for DynamoDB Local")
	}
	cmd := exec.Command(
		"java", fmt.Sprintf("-Djava.library.path=%s/DynamoDBLocal_lib", dir),
		"-jar", jar,
		"-port", strconv.Itoa(port),
		"-inMemory",
	)
	if err := cmd.Start(); err != nil {
		t.Fatalf("Failed to start DynamoDB Local: %s", err)
	}
	t.Cleanup(func() {
		cmd.Process.Kill()
		cmd.Wait()
	})
	return &LocalDynamoServer{Process: cmd.Process, Port: port, Dir: dir}
}

func (l *LocalDynamoServer) Client(ctx context.Context) (*dynamodb.Client, error) {
	cfg, err := config.LoadDefaultConfig(ctx,
		config.WithRetryMaxAttempts(10),
		config.WithRegion("us-east-1"),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider("local", "local", "")),
	)
	if err != nil {
		return nil, err
	}
	endpoint := fmt.Sprintf("http://localhost:%d", l.Port)
	return dynamodb.NewFromConfig(cfg, func(o *dynamodb.Options) {
		o.EndpointResolver = dynamodb.EndpointResolverFromURL(endpoint)
	}), nil
}

// CreateFavoritesTable creates the PK/SK table the favorites store writes
// to and waits until it is active.
func CreateFavoritesTable(ctx context.Context, client *dynamodb.Client) (string, error) {
	_, err := client.CreateTable(ctx, &dynamodb.CreateTableInput{
		TableName:   aws.String(TABLE_NAME),
		BillingMode: types.BillingModePayPerRequest,
		KeySchema: []types.KeySchemaElement{
			{AttributeName: aws.String("PK"), KeyType: types.KeyTypeHash},
			{AttributeName: aws.String("SK"), KeyType: types.KeyTypeRange},
		},
		AttributeDefinitions: []types.AttributeDefinition{
			{AttributeName: aws.String("PK"), AttributeType: types.ScalarAttributeTypeS},
			{AttributeName: aws.String("SK"), AttributeType: types.ScalarAttributeTypeS},
		},
	})
	if err != nil {
		return "", err
	}
	waiter := dynamodb.NewTableExistsWaiter(client)
	err = waiter.Wait(ctx, &dynamodb.DescribeTableInput{TableName: aws.String(TABLE_NAME)}, 30*time.Second)
	return TABLE_NAME, err
}

// NewLocalTable starts DynamoDB Local and returns a client with an empty
// favorites table.
func NewLocalTable(t *testing.T) (*dynamodb.Client, string) {
	t.Helper()
	ctx := context.Background()
	server := StartLocalServer(t)
	client, err := server.Client(ctx)
	if err != nil {
		t.Fatalf("Failed to create DynamoDB client: %s", err)
	}
	deadline := time.Now().Add(15 * time.Second)
	for {
		_, err := client.ListTables(ctx, &dynamodb.ListTablesInput{})
		if err == nil {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("DynamoDB Local on port %d never became ready: %s", server.Port, err)
		}
		time.Sleep(200 * time.Millisecond)
	}
	tableName, err := CreateFavoritesTable(ctx, client)
	if err != nil {
		t.Fatalf("Failed to create table: %s", err)
	}
	t.Logf("Created %s on DynamoDB Local port %d", tableName, server.Port)
	return client, tableName
}
