package partytoken

import (
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"coref/internal/domain"
	dErrors "coref/pkg/domain-errors"
)

type PartyTokenSuite struct {
	suite.Suite
	service *Service
}

func TestPartyTokenSuite(t *testing.T) {
	suite.Run(t, new(PartyTokenSuite))
}

func (s *PartyTokenSuite) SetupTest() {
	s.service = New("test-signing-key", "coref-test")
}

func (s *PartyTokenSuite) TestIssueAndValidate() {
	s.Run("round-trips party domain and role", func() {
		token, err := s.service.Issue("agr.example.com", domain.RoleAggregator, time.Hour)
		s.Require().NoError(err)

		claims, err := s.service.ValidateToken(token)
		s.Require().NoError(err)
		s.Equal("agr.example.com", claims.PartyDomain)
		s.Equal(string(domain.RoleAggregator), claims.Role)
		s.Equal("coref-test", claims.Issuer)
	})

	s.Run("expired token is unauthorized", func() {
		token, err := s.service.Issue("agr.example.com", domain.RoleAggregator, -time.Minute)
		s.Require().NoError(err)

		_, err = s.service.ValidateToken(token)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))
		s.Contains(err.Error(), "expired")
	})

	s.Run("token signed with a different key is rejected", func() {
		other := New("different-key", "coref-test")
		token, err := other.Issue("agr.example.com", domain.RoleAggregator, time.Hour)
		s.Require().NoError(err)

		_, err = s.service.ValidateToken(token)
		s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))
	})

	s.Run("garbage is rejected", func() {
		_, err := s.service.ValidateToken("not.a.token")
		s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))
	})
}
