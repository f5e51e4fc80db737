// SPDX-FileCopyrightText: 2026 dtn7 contributors
//
// SPDX-License-Identifier: GPL-3.0-or-later

// Package tmframe decodes the primary headers of TM (CCSDS 132.0) and AOS
// (CCSDS 732.0) transfer frames, as delivered by the RAF service, and checks
// their frame error control field.
package tmframe
