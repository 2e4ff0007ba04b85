package cloud

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/rs/zerolog/log"

	"github.com/ANIKETSHETTY47/structural-health-twin/internal/baseline"
	"github.com/ANIKETSHETTY47/structural-health-twin/internal/domain"
	"github.com/ANIKETSHETTY47/structural-health-twin/internal/twin"
)

type snsAPI interface {
	Publish(ctx context.Context, in *sns.PublishInput, opts ...func(*sns.Options)) (*sns.PublishOutput, error)
}

// SNSClient wraps the AWS SNS client for notification operations
type SNSClient struct {
	svc      snsAPI
	topicArn string
}

// NewSNSClient creates a new SNS client instance
func NewSNSClient(ctx context.Context, region, topicArn string) (*SNSClient, error) {
	cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("unable to load SDK config: %w", err)
	}
	return &SNSClient{svc: sns.NewFromConfig(cfg), topicArn: topicArn}, nil
}

// SendAlert publishes a message to the topic
func (c *SNSClient) SendAlert(ctx context.Context, subject, message string) error {
	result, err := c.svc.Publish(ctx, &sns.PublishInput{
		TopicArn: aws.String(c.topicArn),
		Subject:  aws.String(subject),
		Message:  aws.String(message),
	})
	if err != nil {
		return fmt.Errorf("failed to publish to SNS: %w", err)
	}
	log.Info().Str("component", "cloud").Str("message_id", aws.ToString(result.MessageId)).Msg("alert sent")
	return nil
}

// AlertNotifier raises an SNS alert when the model status turns critical or
// the overall structural health drops below the critical level. Each alert
// fires once per transition, not once per cycle.
type AlertNotifier struct {
	client *SNSClient

	mu              sync.Mutex
	modelCritical   bool
	overallCritical bool
}

func NewAlertNotifier(client *SNSClient) *AlertNotifier {
	return &AlertNotifier{client: client}
}

func (n *AlertNotifier) Publish(ctx context.Context, s twin.State) error {
	modelCritical := s.Model != nil && !s.Model.Degraded() && s.Model.Status == domain.StatusCritical
	overallCritical := s.OverallHealth < baseline.CriticalHealth

	n.mu.Lock()
	raiseModel := modelCritical && !n.modelCritical
	raiseOverall := overallCritical && !n.overallCritical
	n.modelCritical, n.overallCritical = modelCritical, overallCritical
	n.mu.Unlock()

	if raiseOverall {
		subject := fmt.Sprintf("Structural Alert: overall health %d", s.OverallHealth)
		if err := n.client.SendAlert(ctx, subject, FormatAlert(s)); err != nil {
			return err
		}
	}
	if raiseModel {
		subject := fmt.Sprintf("Structural Alert: critical vibration (health %d)", s.Model.HealthScore)
		if err := n.client.SendAlert(ctx, subject, FormatAlert(s)); err != nil {
			return err
		}
	}
	return nil
}

// FormatAlert renders a snapshot as a plain-text alert body.
func FormatAlert(s twin.State) string {
	var b strings.Builder
	b.WriteString("Structural Health Alert\n\n")
	fmt.Fprintf(&b, "Overall health: %d\n", s.OverallHealth)

	ids := make([]string, 0, len(s.Pillars))
	for id := range s.Pillars {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		fmt.Fprintf(&b, "Pillar %s: %d\n", id, s.Pillars[id].Health)
	}
	if m := s.Model; m != nil {
		fmt.Fprintf(&b, "Reading: status=%s health=%d score=%.4f details=%s\n", m.Status, m.HealthScore, m.Score, m.Details)
	}
	if s.Cycle != "" {
		fmt.Fprintf(&b, "Cycle: %s\n", s.Cycle)
	}
	fmt.Fprintf(&b, "Time: %s\n\nPlease inspect the structure.", s.Timestamp.Format(time.RFC3339))
	return b.String()
}
