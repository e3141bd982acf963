package check

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/astromail/verifier/internal/webmail"
	"github.com/astromail/verifier/types"
)

func TestMailboxTypeStage_Classify(t *testing.T) {
	classifier := webmail.New("testdata/webmail_domains.json", nil)
	stage := NewMailboxTypeStage(classifier)

	assert.Equal(t, types.MailboxWebmail, stage.Classify("gmail.com"))
	assert.Equal(t, types.MailboxProfessional, stage.Classify("acme-corp.example"))
}
