package storage

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/manufacturing-platform/telemetry-gateway/internal/dataplane"
)

// coldTierSensorType tags every archived object with the payload kind
// it carries; spec.md §4.5/§6 name the header but not its value, and
// this pipeline archives exactly one kind of payload.
const coldTierSensorType = "industrial-telemetry"

// ColdStore archives raw payloads to S3 with a date/hour-partitioned
// key scheme, per spec.md §4.5/§6.
type ColdStore struct {
	client *s3.Client
}

// NewColdStore wraps an already-configured S3 client.
func NewColdStore(client *s3.Client) *ColdStore {
	return &ColdStore{client: client}
}

// Put archives one reading's raw payload under
// <prefix><facility_id>/<equipment_id>/<YYYY>/<MM>/<DD>/<HH>/<timestamp>.json
// where prefix is empty for an isolated tenant's dedicated bucket and
// tenants/<tenant_id>/ for a shared bucket (spec.md §4.5). readingAt is
// the reading's own timestamp, which picks the partition and file name.
func (c *ColdStore) Put(ctx context.Context, target dataplane.ObjectTarget, tenantID, facilityID, equipmentID string, readingAt time.Time, payload []byte) error {
	key := target.Prefix + datePartitionedPath(facilityID, equipmentID, readingAt) + "/" + readingAt.UTC().Format(time.RFC3339Nano) + ".json"
	_, err := c.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(target.Bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(payload),
		ContentType: aws.String("application/json"),
		Metadata: map[string]string{
			"equipment_id": equipmentID,
			"tenant_id":    tenantID,
			"sensor-type":  coldTierSensorType,
			"archived-at":  time.Now().UTC().Format(time.RFC3339Nano),
		},
	})
	if err != nil {
		return fmt.Errorf("put object %s/%s: %w", target.Bucket, key, err)
	}
	return nil
}

// PutError archives a payload after any tier's write failed, under the
// same path scheme but rooted at errors/ (or tenants/<id>/errors/ in
// shared mode), filed as <equipment_id>-<epoch_ms>.json and marked
// processing_failed (spec.md §4.5 partial failure policy).
func (c *ColdStore) PutError(ctx context.Context, target dataplane.ObjectTarget, tenantID, facilityID, equipmentID string, failedAt time.Time, payload []byte, cause error) error {
	filename := errorFilename(equipmentID, failedAt)
	key := target.Prefix + "errors/" + datePartitionedPath(facilityID, equipmentID, failedAt) + "/" + filename
	_, err := c.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(target.Bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(payload),
		ContentType: aws.String("application/json"),
		Metadata: map[string]string{
			"equipment_id":      equipmentID,
			"tenant_id":         tenantID,
			"sensor-type":       coldTierSensorType,
			"archived-at":       failedAt.UTC().Format(time.RFC3339Nano),
			"processing_failed": "true",
			"failure_cause":     cause.Error(),
		},
	})
	if err != nil {
		return fmt.Errorf("put error object %s/%s: %w", target.Bucket, key, err)
	}
	return nil
}

// datePartitionedPath builds the <facility_id>/<equipment_id>/<YYYY>/<MM>/<DD>/<HH>
// segment shared by both the normal and error key schemes.
func datePartitionedPath(facilityID, equipmentID string, at time.Time) string {
	at = at.UTC()
	return fmt.Sprintf("%s/%s/%04d/%02d/%02d/%02d",
		facilityID, equipmentID, at.Year(), at.Month(), at.Day(), at.Hour())
}

// errorFilename builds the <equipment_id>-<epoch_ms>.json filename the
// error-archive path uses in place of a timestamp (spec.md §4.5).
func errorFilename(equipmentID string, at time.Time) string {
	return fmt.Sprintf("%s-%d.json", equipmentID, at.UnixMilli())
}

// ListHistoricalKeys returns object keys for one equipment, for the
// Query Surface's key-listing endpoint (no object bodies are fetched:
// historical retrieval beyond key listing is a non-goal). Keys nest
// under facility_id ahead of equipment_id (spec.md §4.5), and the
// caller only knows equipment_id, so this lists the tenant's whole
// prefix and filters client-side on the equipment_id path segment.
func (c *ColdStore) ListHistoricalKeys(ctx context.Context, target dataplane.ObjectTarget, equipmentID string, limit int32) ([]string, error) {
	out, err := c.client.ListObjectsV2(ctx, &s3.ListObjectsV2Input{
		Bucket:  aws.String(target.Bucket),
		Prefix:  aws.String(target.Prefix),
		MaxKeys: aws.Int32(limit),
	})
	if err != nil {
		return nil, fmt.Errorf("list objects %s/%s: %w", target.Bucket, target.Prefix, err)
	}
	segment := "/" + equipmentID + "/"
	keys := make([]string, 0, len(out.Contents))
	for _, obj := range out.Contents {
		key := aws.ToString(obj.Key)
		if strings.Contains(key, segment) {
			keys = append(keys, key)
		}
	}
	return keys, nil
}
