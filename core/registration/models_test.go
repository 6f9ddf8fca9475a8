package registration

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestParseSource(t *testing.T) {
	tests := []struct {
		in     string
		want   Source
		wantOK bool
	}{
		{in: "website", want: SourceWebsite, wantOK: true},
		{in: "in_app", want: SourceInApp, wantOK: true},
		{in: "aftercare", want: SourceAftercare, wantOK: true},
		{in: "Website", wantOK: false},
		{in: "app", wantOK: false},
		{in: "", wantOK: false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := ParseSource(tt.in)
			assert.Equal(t, tt.wantOK, ok)
			if ok {
				assert.Equal(t, tt.want, got)
			}
		})
	}
}

func TestRegistration_HasPlausibleProofOfPayment(t *testing.T) {
	tests := []struct {
		name string
		url  string
		want bool
	}{
		{name: "empty", url: "", want: false},
		{name: "whitespace only", url: "   ", want: false},
		{name: "pending sentinel", url: "pending", want: false},
		{name: "sentinel upper-cased", url: "N/A", want: false},
		{name: "sentinel padded", url: "  none  ", want: false},
		{name: "na", url: "na", want: false},
		{name: "null", url: "null", want: false},
		{name: "undefined", url: "undefined", want: false},
		{name: "real upload", url: "https://cdn.test.cd/proof.jpg", want: true},
		{name: "sentinel inside a real value", url: "receipts/pending-review.pdf", want: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := Registration{ProofOfPaymentURL: tt.url}
			assert.Equal(t, tt.want, r.HasPlausibleProofOfPayment())
		})
	}
}

func TestCanApprove(t *testing.T) {
	tests := []struct {
		name string
		reg  Registration
		want bool
	}{
		{
			name: "approved registrations are terminal",
			reg:  Registration{Source: SourceWebsite, Status: StatusApproved, PaymentVerified: true},
			want: false,
		},
		{
			name: "rejected registrations are terminal",
			reg:  Registration{Source: SourceInApp, Status: StatusRejected, PaymentVerified: true},
			want: false,
		},
		{
			name: "zero fee is always approvable",
			reg:  Registration{Source: SourceWebsite, Status: StatusPending, FeeAmount: 0},
			want: true,
		},
		{
			name: "website with verified payment",
			reg:  Registration{Source: SourceWebsite, Status: StatusPending, FeeAmount: 200, PaymentVerified: true},
			want: true,
		},
		{
			name: "website with proof only is not enough",
			reg:  Registration{Source: SourceWebsite, Status: StatusPending, FeeAmount: 200, ProofOfPaymentURL: "https://cdn.test.cd/proof.jpg"},
			want: false,
		},
		{
			name: "in-app with proof only",
			reg:  Registration{Source: SourceInApp, Status: StatusPending, FeeAmount: 200, ProofOfPaymentURL: "https://cdn.test.cd/proof.jpg"},
			want: true,
		},
		{
			name: "in-app with sentinel proof",
			reg:  Registration{Source: SourceInApp, Status: StatusPending, FeeAmount: 200, ProofOfPaymentURL: "pending"},
			want: false,
		},
		{
			name: "aftercare with verified payment",
			reg:  Registration{Source: SourceAftercare, Status: StatusPending, FeeAmount: 150, PaymentVerified: true},
			want: true,
		},
		{
			name: "aftercare with neither",
			reg:  Registration{Source: SourceAftercare, Status: StatusPending, FeeAmount: 150},
			want: false,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CanApprove(tt.reg))
		})
	}
}

func TestWebsiteRow_Normalize(t *testing.T) {
	created := time.Date(2021, 9, 1, 8, 0, 0, 0, time.UTC)
	row := WebsiteRow{
		ID:                "w1",
		OrganizationID:    "org1",
		GuardianName:      "John Doe",
		GuardianEmail:     "john@test.cd",
		ChildFirstName:    "Jane",
		ChildLastName:     "Doe",
		FeeAmount:         200,
		PaymentVerified:   true,
		DocumentsUploaded: false,
		Status:            "pending",
		CreatedAt:         created,
	}

	reg := row.Normalize()
	assert.Equal(t, SourceWebsite, reg.Source)
	assert.Equal(t, StatusPending, reg.Status)
	assert.Equal(t, "John Doe", reg.GuardianName)
	assert.Equal(t, "Jane Doe", reg.ChildName())
	assert.False(t, reg.DocumentsUploaded) // passthrough, not asserted
	assert.Equal(t, created, reg.CreatedAt)
}

func TestAppRow_Normalize(t *testing.T) {
	t.Run("guardian name from parent profile", func(t *testing.T) {
		row := AppRow{ParentFirstName: " John ", ParentLastName: "Doe", Status: "pending"}
		reg := row.Normalize()
		assert.Equal(t, SourceInApp, reg.Source)
		assert.Equal(t, "John Doe", reg.GuardianName)
		assert.True(t, reg.DocumentsUploaded)
	})

	t.Run("missing profile falls back to Parent", func(t *testing.T) {
		row := AppRow{Status: "pending"}
		assert.Equal(t, "Parent", row.Normalize().GuardianName)
	})

	t.Run("first name only", func(t *testing.T) {
		row := AppRow{ParentFirstName: "John", Status: "pending"}
		assert.Equal(t, "John", row.Normalize().GuardianName)
	})
}

func TestAftercareRow_Normalize(t *testing.T) {
	f := func(v float64) *float64 { return &v }

	t.Run("status remap", func(t *testing.T) {
		tests := []struct {
			in   string
			want Status
		}{
			{in: "paid", want: StatusApproved},
			{in: "Enrolled", want: StatusApproved},
			{in: "approved", want: StatusApproved}, // written back by a review
			{in: "cancelled", want: StatusRejected},
			{in: "rejected", want: StatusRejected},
			{in: "active", want: StatusPending},
			{in: "", want: StatusPending},
			{in: "whatever", want: StatusPending},
		}
		for _, tt := range tests {
			row := AftercareRow{Status: tt.in}
			assert.Equal(t, tt.want, row.Normalize().Status, "status %q", tt.in)
		}
	})

	t.Run("discount from fee gap", func(t *testing.T) {
		row := AftercareRow{OriginalFee: f(200), CurrentFee: f(150)}
		reg := row.Normalize()
		assert.Equal(t, 150.0, reg.FeeAmount)
		assert.Equal(t, 50.0, reg.DiscountAmount)
	})

	t.Run("missing fees mean no discount", func(t *testing.T) {
		row := AftercareRow{CurrentFee: f(150)}
		reg := row.Normalize()
		assert.Equal(t, 150.0, reg.FeeAmount)
		assert.Zero(t, reg.DiscountAmount)

		reg = AftercareRow{}.Normalize()
		assert.Zero(t, reg.FeeAmount)
		assert.Zero(t, reg.DiscountAmount)
	})
}
