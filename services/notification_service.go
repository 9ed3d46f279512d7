// File: /services/notification_service.go
package services

import (
	"context"
	"fmt"
	"html"
	"log"

	"gopkg.in/gomail.v2"
	"groupride-api/config"
	"groupride-api/models"
)

// Notifier tells participants about verification outcomes.
type Notifier interface {
	NotifyRideCompleted(ctx context.Context, participant *models.RideParticipant, ride *models.GroupRide) error
}

type mailSender interface {
	DialAndSend(m ...*gomail.Message) error
}

type NotificationService struct {
	config *config.Config
	sender mailSender
}

func NewNotificationService(cfg *config.Config) *NotificationService {
	dialer := gomail.NewDialer(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUsername, cfg.SMTPPassword)

	return &NotificationService{
		config: cfg,
		sender: dialer,
	}
}

// NotifyRideCompleted sends the completion email. Participants without an
// email address are skipped.
func (ns *NotificationService) NotifyRideCompleted(ctx context.Context, participant *models.RideParticipant, ride *models.GroupRide) error {
	if participant.Email == "" {
		return nil
	}

	m := ns.buildCompletionMessage(participant, ride)

	// Send email
	if err := ns.sender.DialAndSend(m); err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}

	log.Printf("Completion email sent to %s for ride %s", participant.Email, ride.ID)
	return nil
}

func (ns *NotificationService) buildCompletionMessage(participant *models.RideParticipant, ride *models.GroupRide) *gomail.Message {
	m := gomail.NewMessage()
	m.SetHeader("From", fmt.Sprintf("%s <%s>", ns.config.FromName, ns.config.FromEmail))
	m.SetHeader("To", participant.Email)
	m.SetHeader("Subject", fmt.Sprintf("%s - Ride completed: %s", ns.config.FromName, ride.Name))

	textBody, htmlBody := ns.completionBodies(participant, ride)
	m.SetBody("text/plain", textBody)
	m.AddAlternative("text/html", htmlBody)
	return m
}

// completionBodies renders the plain text and HTML bodies. Ride names come
// from organizers and are escaped in the HTML part.
func (ns *NotificationService) completionBodies(participant *models.RideParticipant, ride *models.GroupRide) (string, string) {
	rideDate := ride.ScheduledAt.Format("Monday, 2 January 2006")

	htmlBody := fmt.Sprintf(`
<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
    <title>Ride completed</title>
    <style>
        body { font-family: Arial, sans-serif; line-height: 1.6; color: #333; }
        .container { max-width: 600px; margin: 0 auto; padding: 20px; }
        .header { text-align: center; background: #2e7d32; color: white; padding: 20px; border-radius: 10px 10px 0 0; }
        .content { background: #f8f9fa; padding: 30px; border-radius: 0 0 10px 10px; }
        .score { font-size: 32px; font-weight: bold; color: #2e7d32; text-align: center; margin: 20px 0; }
        .footer { text-align: center; margin-top: 20px; color: #666; font-size: 14px; }
    </style>
</head>
<body>
    <div class="container">
        <div class="header">
            <h1>%s</h1>
            <p>Ride completed</p>
        </div>
        <div class="content">
            <p>Your track for <strong>%s</strong> on %s has been verified.</p>
            <div class="score">%.1f%%</div>
            <p>You stayed with the group for %d of %d checkpoints along the organizer's route.</p>
        </div>
        <div class="footer">
            <p>This is an automated email, please do not reply.</p>
        </div>
    </div>
</body>
</html>`, html.EscapeString(ns.config.FromName), html.EscapeString(ride.Name), rideDate, participant.ProximityScorePct,
		participant.MatchedPoints, participant.TotalOrganizerPoints)

	// Plain text alternative
	textBody := fmt.Sprintf(`
Your track for %s on %s has been verified.

Coverage: %.1f%%
You stayed with the group for %d of %d checkpoints along the organizer's route.

This is an automated email, please do not reply.
`, ride.Name, rideDate, participant.ProximityScorePct, participant.MatchedPoints, participant.TotalOrganizerPoints)

	return textBody, htmlBody
}
