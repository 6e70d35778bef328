package mcpserver

// ImportFormatContract describes the file layout accepted by customer
// imports and produced by exports.
const ImportFormatContract = `# crmdesk Import Format

Customers are imported from CSV or XLSX files. Every imported row becomes a
NEW customer; existing customers are never matched or updated.

## Columns

In this order:

| # | Column        | Notes                                           |
|---|---------------|-------------------------------------------------|
| 1 | companyName   | REQUIRED. Rows without it are skipped.          |
| 2 | contactPerson |                                                 |
| 3 | address       |                                                 |
| 4 | email         |                                                 |
| 5 | phone         |                                                 |
| 6 | source        | Free text; ideally one of the settings labels.  |
| 7 | industry      |                                                 |
| 8 | nextSteps     |                                                 |
| 9 | firstContact  | Date. Unreadable or empty: today.               |
| 10 | lastContact  | Date. Unreadable or empty: today.               |
| 11 | sjSeen       | Boolean.                                        |
| 12 | info         |                                                 |
| 13 | reminderDate | OPTIONAL column. Date. Unreadable: no reminder. |
| 14 | inactive     | OPTIONAL column. Boolean.                       |

## Rules

1. **CSV** files need a header row, but columns are read strictly by
   position; header names are ignored. Delimiter is ` + "`,`" + ` (or ` + "`;`" + ` when the
   header contains semicolons and no commas). Quote fields containing the
   delimiter, quotes or newlines with ` + "`\"`" + `; double inner quotes.
2. **XLSX** files are read from the first sheet. The header row is matched by
   name, case-insensitively: ` + "`companyName`" + `, ` + "`CompanyName`" + ` and ` + "`company_name`" + ` all work.
3. **Booleans**: ` + "`ja`" + ` or ` + "`yes`" + ` (any case) are true; anything else is false.
4. **Dates**: ` + "`YYYY-MM-DD`" + ` is preferred. Also accepted: ` + "`DD.MM.YYYY`" + `,
   ` + "`MM/DD/YYYY`" + `, ` + "`YYYY/MM/DD`" + `, RFC 3339 timestamps and, in XLSX date cells only, spreadsheet serial numbers.
5. JSON backups (` + "`{\"customers\": [...], \"settings\": {...}}`" + `) are not imports;
   they replace all data and are restored through the restore command.

## Example

` + "```" + `csv
companyName,contactPerson,address,email,phone,source,industry,nextSteps,firstContact,lastContact,sjSeen,info,reminderDate,inactive
Acme Corp,Jane Doe,"Main St 1, Springfield",jane@acme.example,+1 555 0100,Referral,Manufacturing,Send offer,2026-03-01,2026-09-15,yes,,2026-11-02,no
` + "```" + `
`
