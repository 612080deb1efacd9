package state

// crystallizePrompt is the tool-owned instruction template written into
// .stato/prompts/ at init time. Agents paste it at the end of a work session
// to distill what was learned into validated modules.
const crystallizePrompt = `# Crystallize

Review this session and distill reusable expertise into stato modules under
` + "`.stato/`" + `. Each module is one HCL file whose first block is the entity.

1. **Skills**: repeatable procedures you executed successfully. Required:
   a ` + "`name`" + ` field and a ` + "`method \"run\"`" + ` block. Record hard-won caveats in
   ` + "`lessons_learned`" + `.
2. **Plan**: the current objective and its steps. Required: ` + "`name`" + `,
   ` + "`objective`" + `, and ` + "`steps`" + ` (list of objects with ` + "`id`" + `, ` + "`action`" + `,
   ` + "`status`" + `, optional ` + "`depends_on`" + `). Keep ` + "`decision_log`" + ` current.
3. **Memory**: phase, open issues, reflections. Entity name ends in State.
4. **Context**: project facts: ` + "`project`" + `, ` + "`description`" + `, environment,
   conventions. Entity name ends in Context.

Statuses must be one of: pending, running, complete, failed, blocked.
Validate every module with ` + "`stato validate`" + ` before finishing, and never
record credentials, tokens, or personal data (run ` + "`stato scan`" + `).
`
