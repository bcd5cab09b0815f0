package emailsvc

import "github.com/kindredkids/compass/core"

// dummyService drops every message. Used when no mail backend is configured:
// absence of mail settings is a silent no-op, not an error.
type dummyService struct{}

var _ core.EmailService = (*dummyService)(nil)

func NewDummyService() core.EmailService { return &dummyService{} }

func (dummyService) SendMessages(...*core.EmailMessage) {}
