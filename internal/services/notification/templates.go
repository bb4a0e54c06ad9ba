package notification

import (
	"fmt"

	"sahel/internal/models"
)

// reminderTemplate renders the reminder email body for one
// (process_type, last_step) pair. Unknown pairs fall back to a generic
// nudge so a new step never breaks the scheduler.
func reminderTemplate(processType, lastStep, userName, frontendURL string) string {
	key := processType + "/" + lastStep
	switch key {
	case models.ProcessRegistration + "/personal_info":
		return fmt.Sprintf(`<h2>Bonjour %s,</h2>
<p>Votre inscription est presque terminée. Reprenez là où vous vous êtes arrêté
pour finaliser l'ouverture de votre compte.</p>
<p><a href="%s/inscription">Continuer mon inscription</a></p>`, userName, frontendURL)
	case models.ProcessRegistration + "/document_upload",
		models.ProcessDocumentUpload + "/document_upload":
		return fmt.Sprintf(`<h2>Bonjour %s,</h2>
<p>Il ne vous reste plus qu'à déposer vos justificatifs pour que nous puissions
vérifier votre dossier. La vérification prend en général moins de 24 heures.</p>
<p><a href="%s/kyc">Déposer mes documents</a></p>`, userName, frontendURL)
	case models.ProcessTwoFactorSetup + "/" + lastStep:
		return fmt.Sprintf(`<h2>Bonjour %s,</h2>
<p>Pensez à activer la double authentification pour sécuriser votre compte.</p>
<p><a href="%s/securite">Activer la double authentification</a></p>`, userName, frontendURL)
	case models.ProcessESignature + "/requested",
		models.ProcessAccountActivation + "/e_signature_required":
		return fmt.Sprintf(`<h2>Bonjour %s,</h2>
<p>Votre signature électronique est attendue pour finaliser l'activation de
votre compte.</p>
<p><a href="%s/signature">Signer maintenant</a></p>`, userName, frontendURL)
	case models.ProcessAccountActivation + "/meeting_required":
		return fmt.Sprintf(`<h2>Bonjour %s,</h2>
<p>Un rendez-vous en agence est nécessaire pour finaliser l'activation de
votre compte. Merci de vous présenter à la date convenue.</p>`, userName)
	default:
		return fmt.Sprintf(`<h2>Bonjour %s,</h2>
<p>Une démarche est en attente sur votre dossier. Connectez-vous pour la
terminer.</p>
<p><a href="%s">Reprendre ma démarche</a></p>`, userName, frontendURL)
	}
}

func reminderSubject(processType string) string {
	switch processType {
	case models.ProcessRegistration:
		return "Terminez votre inscription"
	case models.ProcessDocumentUpload:
		return "Vos justificatifs sont attendus"
	case models.ProcessTwoFactorSetup:
		return "Sécurisez votre compte"
	case models.ProcessESignature:
		return "Votre signature est attendue"
	case models.ProcessAccountActivation:
		return "Finalisez l'activation de votre compte"
	case models.ProcessAppointment:
		return "Votre rendez-vous en agence"
	default:
		return "Une démarche vous attend"
	}
}
