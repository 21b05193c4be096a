package service

// SampleDocument is a short SaaS agreement offered to try the analyzer
// without uploading anything
const SampleDocument = `
SOFTWARE-AS-A-SERVICE AGREEMENT

This Software-as-a-Service Agreement (the "Agreement") is entered into as of October 26, 2023 (the "Effective Date"), by and between InnovateTech Solutions Inc., a Delaware corporation with its principal place of business at 123 Tech Avenue, Silicon Valley, CA 94000 ("Provider"), and Global Corp Enterprises, a New York corporation with its principal place of business at 456 Business Plaza, New York, NY 10001 ("Customer").

1. SERVICES AND RIGHT TO USE
Provider grants Customer a non-exclusive, non-transferable, worldwide right to use the services, and any related software, solely for its internal business purposes, for the term of this Agreement.

2. CONFIDENTIALITY
Each party (the "Receiving Party") understands that the other party (the "Disclosing Party") has disclosed or may disclose business, technical or financial information relating to the Disclosing Party's business (hereinafter referred to as "Proprietary Information" of the Disclosing Party). Proprietary Information of Provider includes non-public information regarding features, functionality and performance of the Service. Proprietary Information of Customer includes non-public data provided by Customer to Provider to enable the provision of the Services ("Customer Data"). The Receiving Party agrees: (i) to take reasonable precautions to protect such Proprietary Information, and (ii) not to use or divulge to any third person any such Proprietary Information. This does not apply to information that is public knowledge, or is required to be disclosed by law.

3. INDEMNITY
Provider shall hold Customer harmless from liability to third parties resulting from infringement by the Service of any United States patent or any copyright or misappropriation of any trade secret, provided Provider is promptly notified of any and all threats, claims and proceedings related thereto and given reasonable assistance and the opportunity to assume sole control over defense and settlement. Provider will not be responsible for any settlement it does not approve in writing. The foregoing obligations do not apply with respect to portions or components of the Service (i) not supplied by Provider, (ii) made in whole or in part in accordance with Customer specifications, or (iii) combined with other products, processes or materials where the alleged infringement would not have occurred without such combination.

4. TERMINATION
This Agreement is effective for a period of one (1) year. Either party may terminate this Agreement with thirty (30) days' written notice if the other party materially breaches any of the terms or conditions of this Agreement. Upon any termination, Customer will immediately cease all use of the Service.

5. GOVERNING LAW
This Agreement shall be governed by the laws of the State of Delaware, without regard to its conflict of laws provisions. Any disputes under this Agreement shall be resolved in a court of general jurisdiction in Wilmington, Delaware.
`
