package decision

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// actionSchema is the wire contract for a single proposed action. It only
// pins structure (kind tag, value types); semantic checks such as side and
// intent values live in the normalizer where they can produce better
// messages.
const actionSchema = `{
  "type": "object",
  "required": ["kind"],
  "properties": {
    "kind": {"type": "string"},
    "contract_id": {"type": "string"},
    "option_symbol": {"type": "string"},
    "tradingsymbol": {"type": "string"},
    "symbol": {"type": "string"},
    "underlying": {"type": "string"},
    "side": {"type": "string"},
    "transaction_type": {"type": "string"},
    "transactiontype": {"type": "string"},
    "quantity": {"type": "integer"},
    "qty": {"type": "integer"},
    "price": {"type": "number"},
    "limit_price": {"type": "number"},
    "intent": {"type": "string"},
    "rationale": {"type": "string"},
    "entry_rationale": {"type": "string"},
    "exit_rationale": {"type": "string"},
    "learnings": {"type": "string"},
    "mistakes": {"type": "string"},
    "tags": {"type": "string"}
  }
}`

var compiledActionSchema = jsonschema.MustCompileString("action.json", actionSchema)

func validateActionNode(raw string) error {
	dec := json.NewDecoder(strings.NewReader(raw))
	dec.UseNumber()
	var doc interface{}
	if err := dec.Decode(&doc); err != nil {
		return fmt.Errorf("invalid JSON: %w", err)
	}
	if err := compiledActionSchema.Validate(doc); err != nil {
		return fmt.Errorf("schema violation: %w", err)
	}
	return nil
}
