package mcpserver

// SchedulingContract describes the event rules that LLM consumers should
// follow when creating agenda entries.
const SchedulingContract = `# Vivenda Agenda Scheduling Contract

Every event scheduled through this server MUST follow these rules.

## Event types

- **VISIT** – an in-person property viewing. Requires both a client_id and
  a property_id; the backend links a Visit record with its own lifecycle.
- **NOTE** – a free-form annotation pinned to a time slot.
- **CAPTATION** – a property-acquisition lead activity (owner meetings,
  valuations, mandate signings).
- **REMINDER** – a follow-up prompt for the owning agent.

## Rules

1. **Title is required** and should say what happens, not who clicks what
   (good: "Visita piso Calle Mayor 12 con Ana Torres").
2. **Dates are agency-local.** date is YYYY-MM-DD and time is HH:MM in the
   agency timezone; do not pass UTC instants.
3. **Duration is fixed.** Events last the configured default (one hour
   unless reconfigured); there is no end-time parameter.
4. **Visits need their links.** client_id and property_id must reference
   existing records; call list_references first if unsure.
5. **Title and type are immutable** once created. To change them, delete
   and re-create the event.
6. **The agenda is shared.** Every agent sees every event; do not schedule
   placeholders or test entries.
`
