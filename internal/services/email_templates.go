package services

// Verification e-mail. Arguments, in order: heading, code lifetime in
// minutes, code, year, organization.
const verificationEmailSubject = "Your %s verification code"

const verificationEmailHTML = `<!DOCTYPE html>
<html>
<body style="margin:0;padding:24px;background:#f4f6fb;font-family:Helvetica,Arial,sans-serif;color:#1f2937;">
  <table role="presentation" width="100%%" cellpadding="0" cellspacing="0">
    <tr><td align="center">
      <table role="presentation" width="560" cellpadding="0" cellspacing="0" style="background:#ffffff;border:1px solid #dbe2f0;border-radius:6px;">
        <tr><td style="padding:24px 32px 0;font-size:20px;font-weight:bold;">%s</td></tr>
        <tr><td style="padding:16px 32px;">Enter this code in the app to confirm your phone number. It is valid for %d minutes.</td></tr>
        <tr><td align="center" style="padding:8px 32px 24px;">
          <span style="display:inline-block;padding:12px 20px;font-size:32px;letter-spacing:6px;font-weight:bold;background:#eef2ff;border-radius:4px;">%s</span>
        </td></tr>
        <tr><td style="padding:0 32px 24px;font-size:12px;color:#6b7280;">If you did not ask for a code you can ignore this message.<br>&copy; %d %s</td></tr>
      </table>
    </td></tr>
  </table>
</body>
</html>`

const verificationSMSBody = "Your %s verification code is %s"
