package whatsapp

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const textDelivery = `{
  "object": "whatsapp_business_account",
  "entry": [{
    "id": "waba-1",
    "changes": [{
      "field": "messages",
      "value": {
        "messaging_product": "whatsapp",
        "metadata": {"display_phone_number": "573005550000", "phone_number_id": "pn-123"},
        "contacts": [{"profile": {"name": "Laura Gomez"}, "wa_id": "573001112233"}],
        "messages": [{
          "from": "573001112233",
          "id": "wamid.abc",
          "timestamp": "1765000000",
          "text": {"body": "Hola, quiero agendar un corte"},
          "type": "text"
        }]
      }
    }]
  }]
}`

func TestParseInboundText(t *testing.T) {
	msgs := ParseInbound([]byte(textDelivery))
	require.Len(t, msgs, 1)

	msg := msgs[0]
	assert.Equal(t, "pn-123", msg.PhoneNumberID)
	assert.Equal(t, "573001112233", msg.From)
	assert.Equal(t, "Laura Gomez", msg.ContactName)
	assert.Equal(t, "wamid.abc", msg.MessageID)
	assert.Equal(t, "text", msg.Type)
	assert.Equal(t, "Hola, quiero agendar un corte", msg.Body)
}

func TestParseInboundNonTextPlaceholder(t *testing.T) {
	payload := `{
	  "entry": [{"changes": [{"value": {
	    "metadata": {"phone_number_id": "pn-123"},
	    "messages": [{"from": "573001112233", "id": "wamid.img", "type": "image"}]
	  }}]}]
	}`
	msgs := ParseInbound([]byte(payload))
	require.Len(t, msgs, 1)
	assert.Equal(t, "[image message]", msgs[0].Body)
}

func TestParseInboundStatusUpdateYieldsNothing(t *testing.T) {
	payload := `{
	  "entry": [{"changes": [{"value": {
	    "metadata": {"phone_number_id": "pn-123"},
	    "statuses": [{"id": "wamid.abc", "status": "delivered"}]
	  }}]}]
	}`
	assert.Empty(t, ParseInbound([]byte(payload)))
}

func TestParseInboundMalformedYieldsNothing(t *testing.T) {
	assert.Empty(t, ParseInbound([]byte("not json at all")))
	assert.Empty(t, ParseInbound([]byte(`{"entry": "wrong shape"}`)))
}
