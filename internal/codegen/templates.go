package codegen

// helpersTS is the runtime support module emitted into every generated
// project. Each exported function mirrors the semantics of the
// spreadsheet function of the same name.
const helpersTS = `// Calculation helpers. Generated file, do not edit.

export type CellValue = number | string | boolean | null | undefined;
export type CellArray = CellValue[] | CellValue[][];
export type CellContext = Record<string, CellValue>;

export function fail(message: string): never {
  throw new Error(message);
}

function flat(v: CellValue | CellArray): CellValue[] {
  if (Array.isArray(v)) return (v as CellValue[]).flat() as CellValue[];
  return [v];
}

function flatAll(args: (CellValue | CellArray)[]): CellValue[] {
  return args.flatMap((a) => flat(a));
}

function asRows(v: CellArray): CellValue[][] {
  if (Array.isArray(v) && Array.isArray(v[0])) return v as CellValue[][];
  return (v as CellValue[]).map((c) => [c]);
}

export function toNumber(v: CellValue): number {
  if (typeof v === "number") return v;
  if (typeof v === "boolean") return v ? 1 : 0;
  if (v === null || v === undefined) return 0;
  let s = String(v).trim();
  if (s === "") return 0;
  let percent = false;
  if (s.endsWith("%")) {
    percent = true;
    s = s.slice(0, -1);
  }
  s = s.replace(/[$€£¥₹\s]/g, "");
  const lastDot = s.lastIndexOf(".");
  const lastComma = s.lastIndexOf(",");
  if (lastComma > lastDot) {
    s = s.replace(/\./g, "").replace(",", ".");
  } else {
    s = s.replace(/,/g, "");
  }
  const n = Number(s);
  if (Number.isNaN(n)) return 0;
  return percent ? n / 100 : n;
}

function truthy(v: CellValue): boolean {
  if (typeof v === "boolean") return v;
  if (typeof v === "number") return v !== 0;
  if (v === null || v === undefined) return false;
  const s = String(v).trim().toUpperCase();
  if (s === "TRUE") return true;
  if (s === "FALSE" || s === "") return false;
  return toNumber(v) !== 0;
}

export function eq(a: CellValue, b: CellValue): boolean {
  if (typeof a === "string" && typeof b === "string") {
    return a.toUpperCase() === b.toUpperCase();
  }
  if (a === null || a === undefined || b === null || b === undefined) {
    return a === b;
  }
  return toNumber(a) === toNumber(b);
}

function matchCriteria(v: CellValue, criterion: CellValue): boolean {
  if (typeof criterion === "string") {
    const s = criterion.trim();
    for (const op of [">=", "<=", "<>", ">", "<", "="] as const) {
      if (s.startsWith(op)) {
        const operand = s.slice(op.length).trim();
        if (op === "=") return eq(v, operand);
        if (op === "<>") return !eq(v, operand);
        const n = toNumber(v);
        const c = toNumber(operand);
        if (op === ">") return n > c;
        if (op === "<") return n < c;
        if (op === ">=") return n >= c;
        return n <= c;
      }
    }
    if (s.includes("*") || s.includes("?")) {
      const pattern = s
        .replace(/[.+^$()[\]{}|\\]/g, "\\$&")
        .replace(/\*/g, ".*")
        .replace(/\?/g, ".");
      return new RegExp("^" + pattern + "$", "i").test(String(v ?? ""));
    }
  }
  return eq(v, criterion);
}

export function SUM(...args: (CellValue | CellArray)[]): number {
  return flatAll(args).reduce<number>((acc, v) => acc + toNumber(v), 0);
}

export function AVERAGE(...args: (CellValue | CellArray)[]): number {
  const vals = flatAll(args);
  if (vals.length === 0) return 0;
  return SUM(...args) / vals.length;
}

export function MIN(...args: (CellValue | CellArray)[]): number {
  const vals = flatAll(args).map(toNumber);
  return vals.length === 0 ? 0 : Math.min(...vals);
}

export function MAX(...args: (CellValue | CellArray)[]): number {
  const vals = flatAll(args).map(toNumber);
  return vals.length === 0 ? 0 : Math.max(...vals);
}

export function COUNT(...args: (CellValue | CellArray)[]): number {
  return flatAll(args).filter(
    (v) => typeof v === "number" || (typeof v === "string" && v.trim() !== "" && !Number.isNaN(Number(v)))
  ).length;
}

export function COUNTA(...args: (CellValue | CellArray)[]): number {
  return flatAll(args).filter((v) => v !== null && v !== undefined && v !== "").length;
}

export function ABS(v: CellValue): number {
  return Math.abs(toNumber(v));
}

export function MOD(n: CellValue, d: CellValue): number {
  const divisor = toNumber(d);
  if (divisor === 0) return 0;
  const r = toNumber(n) % divisor;
  return r !== 0 && (r < 0) !== (divisor < 0) ? r + divisor : r;
}

export function ROUND(v: CellValue, digits: CellValue = 0): number {
  const f = Math.pow(10, Math.trunc(toNumber(digits)));
  const n = toNumber(v) * f;
  return Math.sign(n) * Math.round(Math.abs(n)) / f;
}

export function ROUNDUP(v: CellValue, digits: CellValue = 0): number {
  const f = Math.pow(10, Math.trunc(toNumber(digits)));
  const n = toNumber(v) * f;
  return Math.sign(n) * Math.ceil(Math.abs(n)) / f;
}

export function ROUNDDOWN(v: CellValue, digits: CellValue = 0): number {
  const f = Math.pow(10, Math.trunc(toNumber(digits)));
  const n = toNumber(v) * f;
  return Math.sign(n) * Math.floor(Math.abs(n)) / f;
}

export function IF(cond: CellValue, whenTrue: CellValue, whenFalse: CellValue = false): CellValue {
  return truthy(cond) ? whenTrue : whenFalse;
}

export function IFS(...args: CellValue[]): CellValue {
  for (let i = 0; i + 1 < args.length; i += 2) {
    if (truthy(args[i])) return args[i + 1];
  }
  return fail("IFS: no condition matched");
}

export function AND(...args: (CellValue | CellArray)[]): boolean {
  return flatAll(args).every(truthy);
}

export function OR(...args: (CellValue | CellArray)[]): boolean {
  return flatAll(args).some(truthy);
}

export function NOT(v: CellValue): boolean {
  return !truthy(v);
}

function selectIfs(pairs: (CellValue | CellArray)[], length: number): number[] {
  const out: number[] = [];
  for (let i = 0; i < length; i++) {
    let keep = true;
    for (let p = 0; p + 1 < pairs.length; p += 2) {
      const range = flat(pairs[p] as CellArray);
      if (!matchCriteria(range[i], pairs[p + 1] as CellValue)) {
        keep = false;
        break;
      }
    }
    if (keep) out.push(i);
  }
  return out;
}

export function SUMIF(range: CellArray, criterion: CellValue, sumRange?: CellArray): number {
  const test = flat(range);
  const values = sumRange ? flat(sumRange) : test;
  let total = 0;
  for (let i = 0; i < test.length; i++) {
    if (matchCriteria(test[i], criterion)) total += toNumber(values[i]);
  }
  return total;
}

export function SUMIFS(sumRange: CellArray, ...pairs: (CellValue | CellArray)[]): number {
  const values = flat(sumRange);
  return selectIfs(pairs, values.length).reduce((acc, i) => acc + toNumber(values[i]), 0);
}

export function COUNTIF(range: CellArray, criterion: CellValue): number {
  return flat(range).filter((v) => matchCriteria(v, criterion)).length;
}

export function COUNTIFS(...pairs: (CellValue | CellArray)[]): number {
  if (pairs.length === 0) return 0;
  return selectIfs(pairs, flat(pairs[0] as CellArray).length).length;
}

export function AVERAGEIF(range: CellArray, criterion: CellValue, avgRange?: CellArray): number {
  const test = flat(range);
  const values = avgRange ? flat(avgRange) : test;
  const picked: number[] = [];
  for (let i = 0; i < test.length; i++) {
    if (matchCriteria(test[i], criterion)) picked.push(toNumber(values[i]));
  }
  if (picked.length === 0) return 0;
  return picked.reduce((a, b) => a + b, 0) / picked.length;
}

export function AVERAGEIFS(avgRange: CellArray, ...pairs: (CellValue | CellArray)[]): number {
  const values = flat(avgRange);
  const picked = selectIfs(pairs, values.length).map((i) => toNumber(values[i]));
  if (picked.length === 0) return 0;
  return picked.reduce((a, b) => a + b, 0) / picked.length;
}

export function VLOOKUP(value: CellValue, table: CellArray, col: CellValue, approximate: CellValue = true): CellValue {
  const rows = asRows(table);
  const c = Math.trunc(toNumber(col)) - 1;
  if (!truthy(approximate)) {
    for (const row of rows) {
      if (eq(row[0], value)) return row[c];
    }
    return fail("VLOOKUP: no exact match");
  }
  let best: CellValue[] | null = null;
  for (const row of rows) {
    if (toNumber(row[0]) <= toNumber(value)) best = row;
  }
  if (!best) return fail("VLOOKUP: no match below lookup value");
  return best[c];
}

export function MATCH(value: CellValue, range: CellArray, matchType: CellValue = 1): number {
  const vals = flat(range);
  const mode = Math.trunc(toNumber(matchType));
  if (mode === 0) {
    for (let i = 0; i < vals.length; i++) {
      if (eq(vals[i], value)) return i + 1;
    }
    return fail("MATCH: no exact match");
  }
  let found = -1;
  for (let i = 0; i < vals.length; i++) {
    const c = toNumber(vals[i]) - toNumber(value);
    if (mode > 0 ? c <= 0 : c >= 0) found = i;
  }
  if (found < 0) return fail("MATCH: no match");
  return found + 1;
}

export function INDEX(range: CellArray, row: CellValue, col: CellValue = 1): CellValue {
  const rows = asRows(range);
  const r = Math.trunc(toNumber(row)) - 1;
  const c = Math.trunc(toNumber(col)) - 1;
  if (rows.length === 1 && rows[0].length > 1) {
    return rows[0][r];
  }
  if (r < 0 || r >= rows.length) return fail("INDEX: row out of range");
  return rows[r][c];
}

export function XLOOKUP(
  value: CellValue,
  lookupRange: CellArray,
  returnRange: CellArray,
  notFound: CellValue = undefined,
  matchMode: CellValue = 0,
  searchMode: CellValue = 1
): CellValue {
  let lookup = flat(lookupRange);
  let ret = flat(returnRange);
  if (Math.trunc(toNumber(searchMode)) === -1) {
    lookup = [...lookup].reverse();
    ret = [...ret].reverse();
  }
  const mode = Math.trunc(toNumber(matchMode));
  let bestIdx = -1;
  let bestDelta = Infinity;
  for (let i = 0; i < lookup.length; i++) {
    if (eq(lookup[i], value)) return ret[i];
    if (mode !== 0) {
      const delta = toNumber(lookup[i]) - toNumber(value);
      if ((mode === -1 && delta <= 0) || (mode === 1 && delta >= 0)) {
        if (Math.abs(delta) < bestDelta) {
          bestDelta = Math.abs(delta);
          bestIdx = i;
        }
      }
    }
  }
  if (bestIdx >= 0) return ret[bestIdx];
  if (notFound !== undefined) return notFound;
  return fail("XLOOKUP: no match");
}

const MS_PER_DAY = 86400000;
const SERIAL_EPOCH = Date.UTC(1899, 11, 31);
const LEAP_BUG_CUTOFF = Date.UTC(1900, 2, 1);

export function DATE(year: CellValue, month: CellValue, day: CellValue): number {
  const t = Date.UTC(Math.trunc(toNumber(year)), Math.trunc(toNumber(month)) - 1, Math.trunc(toNumber(day)));
  let serial = Math.round((t - SERIAL_EPOCH) / MS_PER_DAY);
  if (t >= LEAP_BUG_CUTOFF) serial += 1;
  return serial;
}

function serialToDate(serial: CellValue): Date {
  let days = Math.trunc(toNumber(serial));
  if (days >= 61) days -= 1;
  return new Date(SERIAL_EPOCH + days * MS_PER_DAY);
}

export function YEAR(serial: CellValue): number {
  return serialToDate(serial).getUTCFullYear();
}

export function MONTH(serial: CellValue): number {
  return serialToDate(serial).getUTCMonth() + 1;
}

export function DAY(serial: CellValue): number {
  return serialToDate(serial).getUTCDate();
}

function toText(v: CellValue): string {
  if (v === null || v === undefined) return "";
  if (typeof v === "boolean") return v ? "TRUE" : "FALSE";
  return String(v);
}

export function CONCATENATE(...args: CellValue[]): string {
  return args.map(toText).join("");
}

export function CONCAT(...args: (CellValue | CellArray)[]): string {
  return flatAll(args).map(toText).join("");
}

export function LEN(v: CellValue): number {
  return toText(v).length;
}

export function UPPER(v: CellValue): string {
  return toText(v).toUpperCase();
}

export function LOWER(v: CellValue): string {
  return toText(v).toLowerCase();
}

export function TRIM(v: CellValue): string {
  return toText(v).trim().replace(/ +/g, " ");
}

export function LEFT(v: CellValue, n: CellValue = 1): string {
  return toText(v).slice(0, Math.max(0, Math.trunc(toNumber(n))));
}

export function RIGHT(v: CellValue, n: CellValue = 1): string {
  const s = toText(v);
  const count = Math.max(0, Math.trunc(toNumber(n)));
  return count === 0 ? "" : s.slice(-count);
}
`

const tsconfigJSON = `{
  "compilerOptions": {
    "target": "ES2020",
    "module": "ESNext",
    "moduleResolution": "bundler",
    "strict": true,
    "jsx": "react-jsx",
    "esModuleInterop": true,
    "skipLibCheck": true,
    "types": ["vitest/globals"]
  },
  "include": ["src", "tests"]
}
`
